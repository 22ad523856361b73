// ABOUTME: Tests for vSphere source helpers that need no vCenter
// ABOUTME: Covers machine-shape parsing and saturation score mapping

package services

import "testing"

func TestParseMachineShape(t *testing.T) {
	tests := []struct {
		machineType string
		wantVCPUs   int
		wantMemGB   int
	}{
		{"e2-standard-4", 4, 16},
		{"n2-highmem-8", 8, 64},
		{"c2-highcpu-16", 16, 16},
		{"n2d-standard-32", 32, 128},
		{"weird", 4, 16},
		{"e2-standard-notanumber", 4, 16},
	}
	for _, tt := range tests {
		vcpus, memGB := parseMachineShape(tt.machineType)
		if vcpus != tt.wantVCPUs || memGB != tt.wantMemGB {
			t.Errorf("parseMachineShape(%s): expected %d vCPU / %d GB, got %d / %d",
				tt.machineType, tt.wantVCPUs, tt.wantMemGB, vcpus, memGB)
		}
	}
}

func TestSaturationScoreMapping(t *testing.T) {
	if got := obtainabilityFromSaturation(0.1); got != 0.95 {
		t.Errorf("expected 0.95 for a nearly empty cluster, got %.2f", got)
	}
	if got := obtainabilityFromSaturation(0.95); got != 0.15 {
		t.Errorf("expected 0.15 for a nearly full cluster, got %.2f", got)
	}
	if uptimeFromSaturation(0.2) <= uptimeFromSaturation(0.8) {
		t.Error("expected emptier clusters to score higher uptime")
	}
}
