package btree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/module/incremental/btree"
)

// Grounded on _examples/original_source/tests/behaviour_tree/test_robot.py's
// test_tick_always_running_robot: an AlwaysRunning tree contributes no
// velocity demand, so the robot stays put and just drains its battery.
// NewRobot's initial mount and the Tick each apply one simulation step, so
// the battery drains by 0.1 twice.
func TestRobotTickAlwaysRunningTreeContributesNoDemand(t *testing.T) {
	robot, err := btree.NewRobot(btree.NewRobotState(100, 50), btree.AlwaysRunning{})
	require.NoError(t, err)

	result, err := robot.Tick()
	require.NoError(t, err)
	assert.True(t, result.IsRunning())
	assert.InDelta(t, 99.8, robot.State.BatteryLevel, 1e-9)
	assert.InDelta(t, 50, robot.State.Position, 1e-9)
}

// S4/S5 (spec.md §8): position context propagation plus a MoveTowards
// demand driving the robot toward a destination over several ticks. The
// demand is proportional to the remaining distance (2% of it per step), so
// reaching within 0.5 of 0 from 50 takes about 230 steps.
func TestRobotMoveTowardsDestinationConverges(t *testing.T) {
	robot, err := btree.NewRobot(btree.NewRobotState(100, 50), btree.MoveTowards{Destination: 0})
	require.NoError(t, err)

	for i := 0; i < 250; i++ {
		_, err := robot.Tick()
		require.NoError(t, err)
	}

	assert.InDelta(t, 0, robot.State.Position, 0.5)
}

func TestGuaranteePowerSupplyHeadsToChargingAreaWhenBatteryLow(t *testing.T) {
	robot, err := btree.NewRobot(btree.NewRobotState(10, 50), btree.SafeRobot{Task: btree.MoveTowards{Destination: 100}})
	require.NoError(t, err)

	_, err = robot.Tick()
	require.NoError(t, err)

	assert.Less(t, robot.State.Position, 50.0)
}

func TestGuaranteePowerSupplyLetsTaskRunWhenBatteryHealthy(t *testing.T) {
	robot, err := btree.NewRobot(btree.NewRobotState(90, 50), btree.SafeRobot{Task: btree.MoveTowards{Destination: 100}})
	require.NoError(t, err)

	_, err = robot.Tick()
	require.NoError(t, err)

	assert.Greater(t, robot.State.Position, 50.0)
}
