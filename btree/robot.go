package btree

import "github.com/module/incremental/fibre"

// This file is the Go rendering of
// _examples/original_source/tests/behaviour_tree/robot.py: a tiny robot
// simulator that exercises context propagation (battery level, position)
// and capture aggregation (velocity demands) end to end, the scenario
// spec.md §8 names S4 and S5.

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// RobotState is the robot's physical state between ticks: battery level
// and position are both clamped on construction, mirroring robot.py's
// attrs converters.
type RobotState struct {
	BatteryLevel float64
	Position     float64
}

func NewRobotState(batteryLevel, position float64) RobotState {
	return RobotState{
		BatteryLevel: clamp(batteryLevel, 0, 100),
		Position:     clamp(position, 0, 100),
	}
}

// RobotDemands is what the behaviour tree asks the robot to do this tick.
type RobotDemands struct {
	Velocity float64
}

func NewRobotDemands(velocity float64) RobotDemands {
	return RobotDemands{Velocity: clamp(velocity, -1.0, 1.0)}
}

// NextRobotState advances the physical simulation by one tick: the battery
// drains by 0.1 every tick, moving or not, unless the robot is at the
// charging area (position < 0.1), in which case it recharges by 1; the
// position then moves by the demanded velocity.
func NextRobotState(state RobotState, demands RobotDemands) RobotState {
	battery := state.BatteryLevel - 0.1
	if state.Position < 0.1 {
		battery = state.BatteryLevel + 1
	}
	return NewRobotState(battery, state.Position+demands.Velocity)
}

var (
	BatteryLevelContextKey    = fibre.NewContextKey[float64]("BatteryLevelContext")
	PositionContextKey        = fibre.NewContextKey[float64]("PositionContext")
	VelocityDemandsCaptureKey = fibre.NewCaptureKey[float64]("VelocityDemandsCapture")
)

// RobotSimulatorResult is the combined output of one RobotSimulator
// evaluation: the tree's own Result plus the demands it asked for.
type RobotSimulatorResult struct {
	TreeResult Result
	Demands    RobotDemands
}

// RobotSimulator binds the robot's physical state into context for Tree's
// subtree, collects velocity-demand contributions via a capture, and
// reduces them with First — matching robot.py's RobotSimulator /
// RobotContextProvider / RobotCaptureProvider trio collapsed into one
// descriptor (Go has no equivalent to attrs' composability overhead, so
// the three Python classes become one Eval method here).
type RobotSimulator struct {
	State RobotState
	Tree  Node
}

func (r RobotSimulator) Eval(cc *fibre.CallContext) (Result, error) {
	if err := fibre.ProvideContext(cc, BatteryLevelContextKey, r.State.BatteryLevel); err != nil {
		return Result{}, err
	}
	if err := fibre.ProvideContext(cc, PositionContextKey, r.State.Position); err != nil {
		return Result{}, err
	}
	handle := fibre.ProvideCapture(cc, VelocityDemandsCaptureKey, First[float64])
	treeResult, err := EvaluateChild(cc, "tree", "robot-tree", r.Tree)
	if err != nil {
		return Result{}, err
	}
	demands := NewRobotDemands(handle.Collect())
	return ResultSuccess(RobotSimulatorResult{TreeResult: treeResult, Demands: demands}), nil
}

// Robot owns a fibre.Runtime rooted at a RobotSimulator and advances its
// physical state each tick, the Go counterpart of robot.py's mutable
// Robot class and its tick() method.
type Robot struct {
	State   RobotState
	Tree    Node
	runtime *fibre.Runtime
}

// NewRobot constructs a robot and mounts the initial tree.
func NewRobot(initial RobotState, tree Node) (*Robot, error) {
	r := &Robot{State: initial, Tree: tree}
	rt, err := fibre.NewRuntime(Wrap("robot-simulator", RobotSimulator{State: r.State, Tree: r.Tree}))
	if err != nil {
		return nil, err
	}
	r.runtime = rt
	res, _ := rt.Root().Result()
	wrapped, _ := res.(Result)
	if sim, ok := wrapped.Value.(RobotSimulatorResult); ok {
		r.State = NextRobotState(r.State, sim.Demands)
	}
	return r, nil
}

// Runtime exposes the underlying fibre.Runtime for read-only consumers
// such as the visualization export (package viz); the robot simulator
// itself never needs callers to reach past its Tick method.
func (r *Robot) Runtime() *fibre.Runtime { return r.runtime }

// Tick re-provides the robot's current physical state as fresh props to
// the root (a props change, per spec.md §4.1) and advances the physical
// simulation from the demands the tree asked for.
func (r *Robot) Tick() (Result, error) {
	r.runtime.SetRootDescriptor(Wrap("robot-simulator", RobotSimulator{State: r.State, Tree: r.Tree}))
	if _, err := r.runtime.RunTick(); err != nil {
		return Result{}, err
	}
	res, _ := r.runtime.Root().Result()
	wrapped, _ := res.(Result)
	sim, _ := wrapped.Value.(RobotSimulatorResult)
	r.State = NextRobotState(r.State, sim.Demands)
	return sim.TreeResult, nil
}

// BatteryLevelIsAtLeast succeeds when the bound battery context is at
// least threshold.
type BatteryLevelIsAtLeast struct {
	Threshold float64
}

func (b BatteryLevelIsAtLeast) Eval(cc *fibre.CallContext) (Result, error) {
	level, err := fibre.UseContext(cc, BatteryLevelContextKey)
	if err != nil {
		return Result{}, err
	}
	return FromBool(level >= b.Threshold), nil
}

// InChargingArea succeeds when the bound position context is near the
// charging dock.
type InChargingArea struct{}

func (InChargingArea) Eval(cc *fibre.CallContext) (Result, error) {
	position, err := fibre.UseContext(cc, PositionContextKey)
	if err != nil {
		return Result{}, err
	}
	return FromBool(position < 0.1), nil
}

// MoveTowardsChargingArea contributes a fixed-speed return-to-dock demand
// and always reports Running (it never "finishes").
type MoveTowardsChargingArea struct{}

func (MoveTowardsChargingArea) Eval(cc *fibre.CallContext) (Result, error) {
	if err := fibre.UseCapture(cc, VelocityDemandsCaptureKey, -1.0); err != nil {
		return Result{}, err
	}
	return ResultRunning(nil), nil
}

// MoveTowards contributes a demand proportional to the distance to
// Destination.
type MoveTowards struct {
	Destination float64
}

func (m MoveTowards) Eval(cc *fibre.CallContext) (Result, error) {
	position, err := fibre.UseContext(cc, PositionContextKey)
	if err != nil {
		return Result{}, err
	}
	desired := (m.Destination - position) / 50.0
	if err := fibre.UseCapture(cc, VelocityDemandsCaptureKey, desired); err != nil {
		return Result{}, err
	}
	return ResultRunning(nil), nil
}

// GuaranteePowerSupply is the Go rendering of robot.py's node of the same
// name: if the battery is already full, or the robot isn't at the dock
// but still has at least 20% charge, nothing needs to happen; otherwise
// it heads for the charging area.
type GuaranteePowerSupply struct{}

func (GuaranteePowerSupply) Eval(cc *fibre.CallContext) (Result, error) {
	post := PostconditionPreconditionAction{
		Postcondition: NewAnyOf(
			BatteryLevelIsAtLeast{Threshold: 100.0},
			NewAllOf(Not{Child: InChargingArea{}}, BatteryLevelIsAtLeast{Threshold: 20.0}),
		),
		Actions: []Node{MoveTowardsChargingArea{}},
	}
	return post.Eval(cc)
}

// SafeRobot wraps an arbitrary task with the power-supply guarantee: the
// task only runs once GuaranteePowerSupply allows it.
type SafeRobot struct {
	Task Node
}

func (s SafeRobot) Eval(cc *fibre.CallContext) (Result, error) {
	pa := PreconditionAction{Precondition: GuaranteePowerSupply{}, Action: s.Task}
	return pa.Eval(cc)
}
