// Copyright 2026 Twitter, Inc.
// Licensed under the Apache License, Version 2.0.

package capture

import (
	"context"
	"testing"
)

func TestRunFailsWithoutDeviceOrOfflineFile(t *testing.T) {
	err := Run(context.Background(), Options{}, nil)
	if err == nil {
		t.Fatal("Run succeeded with neither a device nor an offline file")
	}
}

func TestRunFailsOnMissingOfflineFile(t *testing.T) {
	err := Run(context.Background(), Options{OfflineFile: "/nonexistent/does-not-exist.pcap"}, nil)
	if err == nil {
		t.Fatal("Run succeeded opening a nonexistent pcap file")
	}
}
