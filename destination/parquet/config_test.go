package parquet

import "testing"

func TestConfigValidate(t *testing.T) {
	config := &Config{Path: t.TempDir(), Compression: "zstd", MaxRows: 500000}

	if err := config.Validate(); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
}

func TestConfigValidateInvalid(t *testing.T) {
	invalid := map[string]*Config{
		"missing path":        {},
		"unknown compression": {Path: "/tmp", Compression: "brotli9"},
		"negative max rows":   {Path: "/tmp", MaxRows: -1},
		"negative row group":  {Path: "/tmp", RowGroupSize: -5},
	}

	for name, config := range invalid {
		if err := config.Validate(); err == nil {
			t.Errorf("%s: expected Validate() to fail", name)
		}
	}
}
