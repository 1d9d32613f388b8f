// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"testing"
)

func TestBatchConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*BatchConfig)
		wantOK bool
	}{
		{"defaults are valid", func(c *BatchConfig) {}, true},
		{"zero workers", func(c *BatchConfig) { c.Workers = 0 }, false},
		{"zero chunk size", func(c *BatchConfig) { c.ChunkSize = 0 }, false},
		{"zero file size limit", func(c *BatchConfig) { c.FileSizeLimitMB = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultBatchConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantOK && err != nil {
				t.Errorf("Validate: %v", err)
			}
			if !tt.wantOK && !errors.Is(err, ErrConfigInvalid) {
				t.Errorf("err = %v, want ErrConfigInvalid", err)
			}
		})
	}
}

func TestGridConfigValidate(t *testing.T) {
	cfg := DefaultGridConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults: %v", err)
	}

	cfg.ClusterType = ClusterRemote
	if err := cfg.Validate(); !errors.Is(err, ErrConfigInvalid) {
		t.Errorf("remote without address: err = %v", err)
	}

	cfg.SchedulerAddress = "scheduler:8786"
	if err := cfg.Validate(); err != nil {
		t.Errorf("remote with address: %v", err)
	}

	cfg.ClusterType = "dask"
	if err := cfg.Validate(); !errors.Is(err, ErrConfigInvalid) {
		t.Errorf("unknown cluster type: err = %v", err)
	}
}

func TestDefaultBatchConfigWorkerCap(t *testing.T) {
	cfg := DefaultBatchConfig()
	if cfg.Workers < 1 || cfg.Workers > maxDefaultWorkers {
		t.Errorf("workers = %d, want 1..%d", cfg.Workers, maxDefaultWorkers)
	}
}
