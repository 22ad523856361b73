// ABOUTME: vSphere-backed capacity source using govmomi cluster discovery
// ABOUTME: Derives placement headroom per compute cluster from vCenter summaries

package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/vmware/govmomi"
	"github.com/vmware/govmomi/find"
	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/vim25/mo"

	"github.com/capacityworks/scenario-engine/models"
)

// VSphereCredentials holds vCenter connection info
type VSphereCredentials struct {
	Host       string
	Username   string
	Password   string
	Datacenter string
	Insecure   bool
}

// VSphereSource answers capacity queries from vCenter inventory: each compute
// cluster acts as a placement location, and headroom comes from the cluster's
// effective free resources. Connects lazily on first query.
type VSphereSource struct {
	creds      VSphereCredentials
	normalizer *ScoreNormalizer

	mu         sync.Mutex
	client     *govmomi.Client
	finder     *find.Finder
	datacenter *object.Datacenter
}

// NewVSphereSource creates a vSphere-backed capacity source
func NewVSphereSource(creds VSphereCredentials) *VSphereSource {
	return &VSphereSource{
		creds:      creds,
		normalizer: NewScoreNormalizer(),
	}
}

// Connect establishes the vCenter session. Safe to call repeatedly.
func (v *VSphereSource) Connect(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.connectLocked(ctx)
}

func (v *VSphereSource) connectLocked(ctx context.Context) error {
	if v.client != nil {
		return nil
	}

	host := v.creds.Host
	if !strings.HasPrefix(host, "https://") && !strings.HasPrefix(host, "http://") {
		host = "https://" + host
	}

	u, err := url.Parse(host + "/sdk")
	if err != nil {
		return fmt.Errorf("invalid vCenter URL '%s': %w", v.creds.Host, err)
	}
	u.User = url.UserPassword(v.creds.Username, v.creds.Password)

	client, err := govmomi.NewClient(ctx, u, v.creds.Insecure)
	if err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "connection refused") {
			return fmt.Errorf("connection refused to vCenter at %s - verify the host is reachable", v.creds.Host)
		}
		if strings.Contains(errStr, "no such host") {
			return fmt.Errorf("cannot resolve vCenter hostname '%s' - verify DNS", v.creds.Host)
		}
		if strings.Contains(errStr, "401") || strings.Contains(errStr, "Cannot complete login") {
			return fmt.Errorf("authentication failed - verify username and password")
		}
		if strings.Contains(errStr, "certificate") || strings.Contains(errStr, "x509") {
			return fmt.Errorf("SSL certificate error connecting to %s - try setting VSPHERE_INSECURE=true", v.creds.Host)
		}
		return fmt.Errorf("failed to connect to vCenter at %s: %w", v.creds.Host, err)
	}

	finder := find.NewFinder(client.Client, true)
	dc, err := finder.Datacenter(ctx, v.creds.Datacenter)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("datacenter '%s' not found - verify the datacenter name", v.creds.Datacenter)
		}
		return fmt.Errorf("error accessing datacenter '%s': %w", v.creds.Datacenter, err)
	}
	finder.SetDatacenter(dc)

	v.client = client
	v.finder = finder
	v.datacenter = dc

	slog.Info("vSphere connected", "host", v.creds.Host, "datacenter", v.creds.Datacenter)
	return nil
}

// Disconnect closes the vCenter session
func (v *VSphereSource) Disconnect(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.client != nil {
		err := v.client.Logout(ctx)
		v.client = nil
		return err
	}
	return nil
}

// clusterHeadroom is the free capacity of one compute cluster
type clusterHeadroom struct {
	Name            string
	FreeMemoryGB    int64
	FreeCPUMHz      int64
	EffectiveHosts  int32
	obtainableCount int
}

// getClusterHeadroom reads effective free resources for every compute cluster
func (v *VSphereSource) getClusterHeadroom(ctx context.Context) ([]clusterHeadroom, error) {
	clusters, err := v.finder.ClusterComputeResourceList(ctx, "*")
	if err != nil {
		return nil, fmt.Errorf("listing clusters: %w", err)
	}

	result := make([]clusterHeadroom, 0, len(clusters))
	for _, cluster := range clusters {
		var clusterMo mo.ClusterComputeResource
		if err := cluster.Properties(ctx, cluster.Reference(), []string{"summary"}, &clusterMo); err != nil {
			return nil, fmt.Errorf("getting cluster %s summary: %w", cluster.Name(), err)
		}

		summary := clusterMo.Summary.GetComputeResourceSummary()
		if summary == nil {
			continue
		}

		result = append(result, clusterHeadroom{
			Name:           cluster.Name(),
			FreeMemoryGB:   summary.EffectiveMemory / 1024, // EffectiveMemory is MB
			FreeCPUMHz:     int64(summary.EffectiveCpu),
			EffectiveHosts: summary.NumEffectiveHosts,
		})
	}
	return result, nil
}

// assumedMHzPerVCPU sizes CPU headroom; vCenter reports MHz, not cores free.
const assumedMHzPerVCPU = 2000

// Query implements CapacitySource against vCenter inventory. Clusters that
// cannot fit the request at all are skipped; an empty result is a stockout.
func (v *VSphereSource) Query(ctx context.Context, req CapacityRequest) (*models.RecommendationSet, error) {
	v.mu.Lock()
	if err := v.connectLocked(ctx); err != nil {
		v.mu.Unlock()
		return nil, err
	}
	v.mu.Unlock()

	headrooms, err := v.getClusterHeadroom(ctx)
	if err != nil {
		return nil, err
	}

	vcpus, memGB := parseMachineShape(req.MachineType)

	var recs []models.Recommendation
	for _, h := range headrooms {
		if h.EffectiveHosts == 0 {
			continue
		}
		byMemory := int(h.FreeMemoryGB / int64(memGB))
		byCPU := int(h.FreeCPUMHz / int64(vcpus*assumedMHzPerVCPU))
		obtainable := byMemory
		if byCPU < obtainable {
			obtainable = byCPU
		}
		if obtainable < req.Count {
			continue
		}

		saturation := float64(req.Count) / float64(obtainable)
		recs = append(recs, models.Recommendation{
			Scores: models.ScoreSet{
				models.ScoreObtainability: obtainabilityFromSaturation(saturation),
				models.ScoreUptime:        uptimeFromSaturation(saturation),
			},
			Shards: []models.Shard{{
				Zone:              h.Name,
				MachineType:       req.MachineType,
				Count:             req.Count,
				ProvisioningModel: "dedicated",
			}},
		})
	}

	return &models.RecommendationSet{
		Recommendations: v.normalizer.Rank(recs),
	}, nil
}

// obtainabilityFromSaturation maps cluster fill ratio to a confidence score
func obtainabilityFromSaturation(saturation float64) float64 {
	switch {
	case saturation <= 0.4:
		return 0.95
	case saturation <= 0.7:
		return 0.70
	case saturation <= 0.9:
		return 0.40
	default:
		return 0.15
	}
}

// uptimeFromSaturation: nearly-full clusters evict under host failure
func uptimeFromSaturation(saturation float64) float64 {
	if saturation < 0.5 {
		return 0.90
	}
	return 0.40
}

// parseMachineShape derives vCPU and memory from a machine-type name like
// "e2-standard-4" (class sets the GB-per-vCPU ratio). Unparseable names get
// a conservative 4 vCPU / 16 GB shape.
func parseMachineShape(machineType string) (vcpus, memGB int) {
	parts := strings.Split(strings.ToLower(machineType), "-")
	vcpus, memGB = 4, 16
	if len(parts) < 3 {
		return vcpus, memGB
	}

	n, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil || n < 1 {
		return vcpus, memGB
	}
	vcpus = n

	switch parts[1] {
	case "highcpu":
		memGB = vcpus
	case "highmem":
		memGB = vcpus * 8
	case "standard":
		memGB = vcpus * 4
	default:
		memGB = vcpus * 4
	}
	return vcpus, memGB
}
