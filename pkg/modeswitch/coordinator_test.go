package modeswitch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newScenarioCoordinator builds the coordinator used by the switching scenarios:
// one fixed controller, a position controller reused by the impedance mode and
// a dedicated impedance controller.
func newScenarioCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	c, err := NewCoordinator(Config{
		FixedControllers: []string{"fixed_A"},
		Bindings: map[Role]string{
			RoleJointPosition:  "pos_ctrl",
			RoleJointImpedance: "imp_ctrl",
		},
	})
	require.NoError(t, err)
	return c
}

func newFullyBoundCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	c, err := NewCoordinator(Config{
		FixedControllers: []string{"joint_state_broadcaster"},
		Bindings: map[Role]string{
			RoleJointPosition:      "joint_pos",
			RoleCartesianPosition:  "cart_pos",
			RoleJointImpedance:     "joint_imp",
			RoleCartesianImpedance: "cart_imp",
			RoleTorque:             "torque",
			RoleWrench:             "wrench",
		},
	})
	require.NoError(t, err)
	return c
}

func approveBoth(c *Coordinator) {
	c.ApproveActivation()
	c.ApproveDeactivation()
}

func TestScenario_JointPositionThenJointImpedance(t *testing.T) {
	c := newScenarioCoordinator(t)

	plan, err := c.ComputeSwitch(ModeJointPosition)
	require.NoError(t, err)
	assert.Equal(t, []string{"fixed_A", "pos_ctrl"}, plan.Activate)
	assert.Empty(t, plan.Deactivate)

	approveBoth(c)
	assert.Equal(t, []string{"pos_ctrl"}, c.Active())

	plan, err = c.ComputeSwitch(ModeJointImpedance)
	require.NoError(t, err)
	assert.Equal(t, []string{"imp_ctrl"}, plan.Activate)
	assert.Empty(t, plan.Deactivate)

	approveBoth(c)
	assert.Equal(t, []string{"imp_ctrl", "pos_ctrl"}, c.Active())
}

func TestScenario_FullDeactivationKeepsFixed(t *testing.T) {
	c := newScenarioCoordinator(t)

	_, err := c.ComputeSwitch(ModeJointPosition)
	require.NoError(t, err)
	approveBoth(c)
	_, err = c.ComputeSwitch(ModeJointImpedance)
	require.NoError(t, err)
	approveBoth(c)

	plan := c.ComputeFullDeactivation()
	assert.Empty(t, plan.Activate)
	assert.Equal(t, []string{"imp_ctrl", "pos_ctrl"}, plan.Deactivate)

	approveBoth(c)
	assert.Empty(t, c.Active())

	// fixed_A is still running, so switching back does not start it again.
	plan, err = c.ComputeSwitch(ModeJointPosition)
	require.NoError(t, err)
	assert.Equal(t, []string{"pos_ctrl"}, plan.Activate)
}

func TestComputeSwitch_DropsSharedControllers(t *testing.T) {
	c := newFullyBoundCoordinator(t)

	_, err := c.ComputeSwitch(ModeCartesianImpedance)
	require.NoError(t, err)
	approveBoth(c)

	plan, err := c.ComputeSwitch(ModeCartesianPosition)
	require.NoError(t, err)
	assert.Empty(t, plan.Activate)
	assert.Equal(t, []string{"cart_imp"}, plan.Deactivate)

	plan, err = c.ComputeSwitch(ModeTorque)
	require.NoError(t, err)
	assert.Equal(t, []string{"torque"}, plan.Activate)
	assert.Equal(t, []string{"cart_imp", "cart_pos"}, plan.Deactivate)
}

func TestComputeSwitch_IdempotentWithoutApproval(t *testing.T) {
	for _, mode := range AllModes() {
		t.Run(mode.String(), func(t *testing.T) {
			c := newFullyBoundCoordinator(t)
			_, err := c.ComputeSwitch(ModeWrench)
			require.NoError(t, err)
			approveBoth(c)

			first, err := c.ComputeSwitch(mode)
			require.NoError(t, err)
			second, err := c.ComputeSwitch(mode)
			require.NoError(t, err)
			assert.Equal(t, first, second)
		})
	}
}

func TestComputeSwitch_SetsAreDisjoint(t *testing.T) {
	for _, from := range AllModes() {
		for _, to := range AllModes() {
			c := newFullyBoundCoordinator(t)
			_, err := c.ComputeSwitch(from)
			require.NoError(t, err)
			approveBoth(c)

			plan, err := c.ComputeSwitch(to)
			require.NoError(t, err)
			deactivate := newNameSet(plan.Deactivate...)
			for _, name := range plan.Activate {
				assert.False(t, deactivate.has(name), "%s -> %s: %q proposed for both", from, to, name)
			}
		}
	}
}

func TestApprove_ActiveSetArithmetic(t *testing.T) {
	c := newFullyBoundCoordinator(t)
	_, err := c.ComputeSwitch(ModeJointImpedance)
	require.NoError(t, err)
	approveBoth(c)

	before := newNameSet(c.Active()...)
	plan, err := c.ComputeSwitch(ModeCartesianImpedance)
	require.NoError(t, err)

	c.ApproveActivation()
	c.ApproveDeactivation()

	want := newNameSet()
	for name := range before {
		want.add(name)
	}
	want.add(plan.Activate...)
	for _, name := range plan.Deactivate {
		delete(want, name)
	}
	for _, name := range c.Fixed() {
		delete(want, name)
	}

	assert.Equal(t, want.sorted(), c.Active())
	pending := c.Pending()
	assert.Empty(t, pending.Activate)
	assert.Empty(t, pending.Deactivate)
	assert.Equal(t, PhaseIdle, c.Phase())
}

func TestApprove_DeactivationFirst(t *testing.T) {
	c := newFullyBoundCoordinator(t)
	_, err := c.ComputeSwitch(ModeTorque)
	require.NoError(t, err)
	approveBoth(c)

	_, err = c.ComputeSwitch(ModeWrench)
	require.NoError(t, err)
	assert.Equal(t, PhaseProposed, c.Phase())

	c.ApproveDeactivation()
	assert.Equal(t, PhaseDeactivated, c.Phase())
	assert.Empty(t, c.Active())

	c.ApproveActivation()
	assert.Equal(t, PhaseIdle, c.Phase())
	assert.Equal(t, []string{"wrench"}, c.Active())
}

func TestApprove_NoopWhenNothingPending(t *testing.T) {
	c := newScenarioCoordinator(t)
	c.ApproveActivation()
	c.ApproveDeactivation()
	assert.Empty(t, c.Active())
	assert.Equal(t, PhaseIdle, c.Phase())
}

func TestComputeSwitch_Unspecified(t *testing.T) {
	c := newScenarioCoordinator(t)
	_, err := c.ComputeSwitch(ModeJointPosition)
	require.NoError(t, err)
	c.ApproveActivation()
	_, err = c.ComputeSwitch(ModeJointImpedance)
	require.NoError(t, err)

	pending := c.Pending()
	active := c.Active()

	_, err = c.ComputeSwitch(ModeUnspecified)
	require.ErrorIs(t, err, ErrUnspecifiedMode)
	assert.Equal(t, pending, c.Pending())
	assert.Equal(t, active, c.Active())
}

func TestComputeSwitch_InvalidMode(t *testing.T) {
	c := newScenarioCoordinator(t)
	_, err := c.ComputeSwitch(ControlMode(42))
	require.ErrorIs(t, err, ErrInvalidMode)
	assert.False(t, errors.Is(err, ErrUnspecifiedMode))
	assert.Equal(t, PhaseIdle, c.Phase())
}

func TestComputeSwitch_UnboundRole(t *testing.T) {
	c := newScenarioCoordinator(t)
	_, err := c.ComputeSwitch(ModeJointPosition)
	require.NoError(t, err)

	_, err = c.ComputeSwitch(ModeCartesianImpedance)
	require.ErrorIs(t, err, ErrUnboundRole)

	// The earlier proposal survives the failed computation.
	assert.Equal(t, []string{"fixed_A", "pos_ctrl"}, c.Pending().Activate)

	require.NoError(t, c.UpdateControllerName(RoleJointPosition, ""))
	_, err = c.ComputeSwitch(ModeJointPosition)
	require.ErrorIs(t, err, ErrUnboundRole)
}

func TestComputeSwitch_ReplacesPendingProposal(t *testing.T) {
	c := newFullyBoundCoordinator(t)
	_, err := c.ComputeSwitch(ModeJointPosition)
	require.NoError(t, err)

	plan, err := c.ComputeSwitch(ModeTorque)
	require.NoError(t, err)
	assert.Equal(t, []string{"joint_state_broadcaster", "torque"}, plan.Activate)

	c.ApproveActivation()
	assert.Equal(t, []string{"torque"}, c.Active())
}

func TestDiscard(t *testing.T) {
	c := newFullyBoundCoordinator(t)
	_, err := c.ComputeSwitch(ModeJointPosition)
	require.NoError(t, err)
	approveBoth(c)

	_, err = c.ComputeSwitch(ModeTorque)
	require.NoError(t, err)
	c.Discard()

	assert.Equal(t, PhaseIdle, c.Phase())
	assert.True(t, c.Pending().Empty())
	assert.Equal(t, []string{"joint_pos"}, c.Active())

	// Approving after a discard changes nothing.
	approveBoth(c)
	assert.Equal(t, []string{"joint_pos"}, c.Active())
}

func TestUpdateControllerName_AffectsEveryModeUsingTheRole(t *testing.T) {
	c := newScenarioCoordinator(t)
	require.NoError(t, c.UpdateControllerName(RoleJointPosition, "new_pos"))

	plan, err := c.ComputeSwitch(ModeJointImpedance)
	require.NoError(t, err)
	assert.Equal(t, []string{"fixed_A", "imp_ctrl", "new_pos"}, plan.Activate)

	plan, err = c.ComputeSwitch(ModeJointPosition)
	require.NoError(t, err)
	assert.Equal(t, []string{"fixed_A", "new_pos"}, plan.Activate)
}

func TestUpdateControllerName_UnknownRole(t *testing.T) {
	c := newScenarioCoordinator(t)
	err := c.UpdateControllerName(Role(99), "x")
	require.ErrorIs(t, err, ErrUnknownRole)
}

func TestNewCoordinator_Errors(t *testing.T) {
	_, err := NewCoordinator(Config{FixedControllers: []string{"ok", "  "}})
	require.Error(t, err)

	_, err = NewCoordinator(Config{Bindings: map[Role]string{Role(7): "x"}})
	require.ErrorIs(t, err, ErrUnknownRole)
}

func TestComputeFullDeactivation_ClearsPendingActivate(t *testing.T) {
	c := newScenarioCoordinator(t)
	_, err := c.ComputeSwitch(ModeJointPosition)
	require.NoError(t, err)

	plan := c.ComputeFullDeactivation()
	assert.True(t, plan.Empty())
	assert.Equal(t, PhaseIdle, c.Phase())

	c.ApproveActivation()
	assert.Empty(t, c.Active())
}
