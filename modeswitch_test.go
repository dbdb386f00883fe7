package modeswitch_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bft-labs/modeswitch"
	"github.com/bft-labs/modeswitch/internal/domain"
)

func TestRun_DryRun(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := modeswitch.Run(ctx, modeswitch.Config{
		DryRun:      true,
		UpdateRate:  1000,
		ControlMode: modeswitch.ModeTorque,
		Controllers: map[modeswitch.Role]string{modeswitch.RoleTorque: "torque_ctrl"},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	err := modeswitch.Run(context.Background(), modeswitch.Config{})
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("Run error = %v, want ErrInvalidConfig", err)
	}
}
