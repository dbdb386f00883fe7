package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/bft-labs/modeswitch/internal/adapters/fs"
	"github.com/bft-labs/modeswitch/internal/domain"
	"github.com/bft-labs/modeswitch/pkg/modeswitch"
)

// execute runs the root command with args and an isolated home directory.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{"MODESWITCH_CONTROL_MODE", "MODESWITCH_FIXED_CONTROLLERS", "MODESWITCH_STATUS_DIR", "MODESWITCH_DRY_RUN"} {
		t.Setenv(key, "")
	}

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.String(), err
}

func TestPlanCommand(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		activate   []string
		deactivate []string
	}{
		{
			name:     "from nothing",
			args:     []string{"plan", "--mode", "joint_position", "--controller", "joint_position=pos_ctrl", "--fixed", "fixed_A"},
			activate: []string{"fixed_A", "pos_ctrl"},
		},
		{
			name: "shared controller kept",
			args: []string{"plan", "--from", "joint_position", "--mode", "joint_impedance",
				"--controller", "joint_position=pos_ctrl", "--controller", "joint_impedance=imp_ctrl", "--fixed", "fixed_A"},
			activate: []string{"imp_ctrl"},
		},
		{
			name: "stop what is no longer needed",
			args: []string{"plan", "--from", "joint_impedance", "--mode", "torque",
				"--controller", "joint_position=pos_ctrl", "--controller", "joint_impedance=imp_ctrl", "--controller", "torque=t_ctrl"},
			activate:   []string{"t_ctrl"},
			deactivate: []string{"imp_ctrl", "pos_ctrl"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			if err != nil {
				t.Fatalf("plan failed: %v", err)
			}

			var plan modeswitch.Plan
			if err := json.Unmarshal([]byte(out), &plan); err != nil {
				t.Fatalf("decode %q: %v", out, err)
			}
			if len(tt.activate) == 0 {
				tt.activate = []string{}
			}
			if len(tt.deactivate) == 0 {
				tt.deactivate = []string{}
			}
			if !reflect.DeepEqual(plan.Activate, tt.activate) {
				t.Errorf("activate = %v, want %v", plan.Activate, tt.activate)
			}
			if !reflect.DeepEqual(plan.Deactivate, tt.deactivate) {
				t.Errorf("deactivate = %v, want %v", plan.Deactivate, tt.deactivate)
			}
		})
	}
}

func TestPlanCommand_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unbound role", []string{"plan", "--mode", "torque"}, "torque"},
		{"bad mode", []string{"plan", "--mode", "flying"}, "--mode"},
		{"bad from", []string{"plan", "--from", "flying", "--mode", "torque", "--controller", "torque=t"}, "--from"},
		{"bad role", []string{"plan", "--controller", "steering=x"}, "--controller"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestModesCommand(t *testing.T) {
	out, err := execute(t, "modes", "--controller", "torque=t_ctrl")
	if err != nil {
		t.Fatalf("modes failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if got, want := len(lines), len(modeswitch.AllModes())+1; got != want {
		t.Fatalf("got %d lines, want %d:\n%s", got, want, out)
	}
	if !strings.Contains(out, "t_ctrl") {
		t.Errorf("bound controller missing:\n%s", out)
	}
	if !strings.Contains(out, "<unbound>") {
		t.Errorf("unbound marker missing:\n%s", out)
	}
}

func TestStatusCommand(t *testing.T) {
	dir := t.TempDir()
	want := domain.Snapshot{
		Lifecycle: "active",
		Mode:      modeswitch.ModeTorque,
		Active:    []string{"t_ctrl"},
		Fixed:     []string{},
		Phase:     "Idle",
		Ticks:     7,
	}
	if err := fs.NewStatusFile(dir).WriteSnapshot(want); err != nil {
		t.Fatalf("WriteSnapshot failed: %v", err)
	}

	out, err := execute(t, "status", "--status-dir", dir)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}

	var got domain.Snapshot
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if got.Mode != want.Mode || got.Ticks != want.Ticks || !reflect.DeepEqual(got.Active, want.Active) {
		t.Errorf("status = %+v, want %+v", got, want)
	}
}

func TestStatusCommand_Missing(t *testing.T) {
	_, err := execute(t, "status", "--status-dir", t.TempDir())
	if !os.IsNotExist(err) {
		t.Errorf("error = %v, want not-exist", err)
	}
}

func TestRunOnce(t *testing.T) {
	statusDir := t.TempDir()
	_, err := execute(t,
		"--once", "--dry-run", "--log-level", "error",
		"--mode", "joint_impedance",
		"--controller", "joint_position=pos_ctrl",
		"--controller", "joint_impedance=imp_ctrl",
		"--fixed", "fixed_A",
		"--status-dir", statusDir,
	)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	snap, err := fs.NewStatusFile(statusDir).ReadSnapshot()
	if err != nil {
		t.Fatalf("ReadSnapshot failed: %v", err)
	}
	if snap.Lifecycle != "finalized" {
		t.Errorf("lifecycle = %q, want finalized", snap.Lifecycle)
	}
	if len(snap.Active) != 0 {
		t.Errorf("active = %v, want none after shutdown", snap.Active)
	}
}

func TestConfigFileAndFlagPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `control_mode = "torque"

[controllers]
torque = "file_torque"
wrench = "file_wrench"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "plan", "--config", path, "--controller", "torque=flag_torque")
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	var plan modeswitch.Plan
	if err := json.Unmarshal([]byte(out), &plan); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if plan.Mode != modeswitch.ModeTorque {
		t.Errorf("mode = %s, want torque from the file", plan.Mode)
	}
	if want := []string{"flag_torque"}; !reflect.DeepEqual(plan.Activate, want) {
		t.Errorf("activate = %v, want %v", plan.Activate, want)
	}
}
