// ABOUTME: HTTP client for the capacity-query backend
// ABOUTME: Handles auth, SOCKS5 tunneling, error classification, and catalog lookups

package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	proxy "github.com/cloudfoundry/socks5-proxy"

	"github.com/capacityworks/scenario-engine/cache"
	"github.com/capacityworks/scenario-engine/models"
)

// CapacityRequest is the outbound query shape.
type CapacityRequest struct {
	Region      string                 `json:"region"`
	Zones       []string               `json:"zones,omitempty"`
	MachineType string                 `json:"machine_type"`
	Count       int                    `json:"count"`
	Policy      models.PlacementPolicy `json:"policy"`
}

// CapacitySource answers capacity queries. Implemented by the live HTTP
// backend, the vSphere source, and the simulation engine.
type CapacitySource interface {
	Query(ctx context.Context, req CapacityRequest) (*models.RecommendationSet, error)
}

// CapacityClient queries a remote capacity backend over HTTP.
type CapacityClient struct {
	apiURL string
	token  string
	client *http.Client
	cache  *cache.Cache
}

// NewCapacityClient creates a client for the given backend URL. When allProxy
// is set (ssh+socks5://user@host:port?private-key=/path), requests tunnel
// through the jumpbox the same way the usual cloud CLIs do.
func NewCapacityClient(apiURL, token, allProxy string, timeout time.Duration, c *cache.Cache) *CapacityClient {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if allProxy != "" {
		if dialContext := createSOCKS5DialContextFunc(allProxy); dialContext != nil {
			transport.DialContext = dialContext
		}
	}

	return &CapacityClient{
		apiURL: strings.TrimSuffix(apiURL, "/"),
		token:  token,
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		cache: c,
	}
}

// Query issues one capacity query. A 404 from the backend means no viable
// placement exists for the request and is returned as an empty set, not an
// error; the caller distinguishes stockout by list length.
func (c *CapacityClient) Query(ctx context.Context, req CapacityRequest) (*models.RecommendationSet, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding capacity request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/v1/capacity/query", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating capacity request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("capacity query for %s/%s: %w", req.Region, req.MachineType, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var set models.RecommendationSet
		if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
			return nil, fmt.Errorf("parsing capacity response: %w", err)
		}
		return &set, nil

	case resp.StatusCode == http.StatusNotFound:
		// Not-found is stockout: the backend searched and has nothing.
		return &models.RecommendationSet{}, nil

	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(msg)),
		}
	}
}

// Locations returns the zone catalog for a region, cached with single-flight
// loading so concurrent workers issue at most one lookup per region.
func (c *CapacityClient) Locations(ctx context.Context, region string) ([]string, error) {
	key := "locations:" + region
	val, err := c.cache.GetOrFetch(key, func() (interface{}, error) {
		return c.fetchLocations(ctx, region)
	})
	if err != nil {
		return nil, err
	}
	return val.([]string), nil
}

func (c *CapacityClient) fetchLocations(ctx context.Context, region string) ([]string, error) {
	u := c.apiURL + "/v1/locations?region=" + url.QueryEscape(region)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating locations request: %w", err)
	}
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("locations lookup for %s: %w", region, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	var payload struct {
		Zones []string `json:"zones"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("parsing locations response: %w", err)
	}
	return payload.Zones, nil
}

// createSOCKS5DialContextFunc creates a dial function for SSH+SOCKS5 proxy connections.
// Supports format: ssh+socks5://user@host:port?private-key=/path/to/key
func createSOCKS5DialContextFunc(allProxy string) func(ctx context.Context, network, address string) (net.Conn, error) {
	allProxy = strings.TrimPrefix(allProxy, "ssh+")

	proxyURL, err := url.Parse(allProxy)
	if err != nil {
		slog.Error("Failed to parse CAPACITY_ALL_PROXY URL", "error", err)
		return nil
	}

	queryMap, err := url.ParseQuery(proxyURL.RawQuery)
	if err != nil {
		slog.Error("Failed to parse CAPACITY_ALL_PROXY query params", "error", err)
		return nil
	}

	username := ""
	if proxyURL.User != nil {
		username = proxyURL.User.Username()
	}

	proxySSHKeyPath := queryMap.Get("private-key")
	if proxySSHKeyPath == "" {
		slog.Error("CAPACITY_ALL_PROXY missing required 'private-key' query param")
		return nil
	}

	proxySSHKey, err := os.ReadFile(proxySSHKeyPath)
	if err != nil {
		slog.Error("Failed to read SSH private key", "path", proxySSHKeyPath, "error", err)
		return nil
	}

	socks5Proxy := proxy.NewSocks5Proxy(proxy.NewHostKey(), log.Default(), 1*time.Minute)

	var (
		dialer proxy.DialFunc
		mut    sync.RWMutex
	)

	return func(ctx context.Context, network, address string) (net.Conn, error) {
		mut.RLock()
		haveDialer := dialer != nil
		mut.RUnlock()

		if haveDialer {
			return dialer(network, address)
		}

		mut.Lock()
		defer mut.Unlock()
		if dialer == nil {
			proxyDialer, err := socks5Proxy.Dialer(username, string(proxySSHKey), proxyURL.Host)
			if err != nil {
				return nil, fmt.Errorf("error creating SOCKS5 dialer: %w", err)
			}
			dialer = proxyDialer
		}
		return dialer(network, address)
	}
}
