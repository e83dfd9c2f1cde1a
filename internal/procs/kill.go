// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package procs

// Strength selects graceful or forced termination.
type Strength int

const (
	Graceful Strength = iota // SIGTERM or taskkill
	Force                    // SIGKILL or taskkill /F
)

func (s Strength) String() string {
	if s == Force {
		return "force"
	}
	return "graceful"
}

// Killer terminates a single process.
type Killer interface {
	Kill(pid int, s Strength) error
}

// KillerFunc adapts a function to Killer.
type KillerFunc func(pid int, s Strength) error

// Kill calls f.
func (f KillerFunc) Kill(pid int, s Strength) error { return f(pid, s) }

// OSKiller terminates processes with the platform mechanism.
var OSKiller Killer = KillerFunc(Terminate)

// KillReport partitions a bulk termination. Killed and Failed are
// disjoint and together hold every requested pid.
type KillReport struct {
	Killed []int         `json:"killed"`
	Failed []int         `json:"failed"`
	Errors map[int]error `json:"-"`
}

// KillAll terminates each pid independently. A failure never stops the
// remaining pids from being attempted.
func KillAll(k Killer, pids []int, s Strength) KillReport {
	report := KillReport{
		Killed: []int{},
		Failed: []int{},
		Errors: make(map[int]error),
	}
	for _, pid := range pids {
		if err := k.Kill(pid, s); err != nil {
			report.Failed = append(report.Failed, pid)
			report.Errors[pid] = err
			continue
		}
		report.Killed = append(report.Killed, pid)
	}
	return report
}
