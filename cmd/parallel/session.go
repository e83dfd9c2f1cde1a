// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/wingedpig/parallel/internal/app"
	"github.com/wingedpig/parallel/internal/config"
	"github.com/wingedpig/parallel/internal/issues"
	"github.com/wingedpig/parallel/internal/procs"
	"github.com/wingedpig/parallel/internal/prompt"
	"github.com/wingedpig/parallel/internal/session"
)

var (
	startBranch   string
	startNew      bool
	startHeadless bool
	startTask     string
	startIssue    int

	listOrphaned bool

	killOrphaned bool
	killForce    bool
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Start, list and kill agent sessions",
}

var sessionStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Launch an agent session in a new terminal window",
	Long: `Launch an agent session. Without --branch the session runs on main in
the project root. With --branch it runs in that branch's worktree, which is
created on first use; --new also creates the branch.

--issue fills the task from a GitHub issue (requires the gh CLI) and, unless
--branch is given, starts on a new branch named after the issue.`,
	Args: cobra.NoArgs,
	RunE: withApp(runSessionStart),
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List agent processes running on this machine",
	Args:  cobra.NoArgs,
	RunE:  withApp(runSessionList),
}

var sessionKillCmd = &cobra.Command{
	Use:   "kill [pid...]",
	Short: "Terminate agent processes by pid, or every orphaned one",
	RunE:  withApp(runSessionKill),
}

func init() {
	sessionStartCmd.Flags().StringVarP(&startBranch, "branch", "b", "", "Branch to work on (the prefix is added when missing)")
	sessionStartCmd.Flags().BoolVar(&startNew, "new", false, "Create the branch")
	sessionStartCmd.Flags().BoolVar(&startHeadless, "headless", false, "Skip the agent's permission prompts")
	sessionStartCmd.Flags().StringVarP(&startTask, "task", "t", "", "Task description piped to the agent")
	sessionStartCmd.Flags().IntVar(&startIssue, "issue", 0, "GitHub issue number to work on")

	sessionListCmd.Flags().BoolVar(&listOrphaned, "orphaned", false, "Only show processes without a terminal")

	sessionKillCmd.Flags().BoolVar(&killOrphaned, "orphaned", false, "Kill every orphaned agent process")
	sessionKillCmd.Flags().BoolVarP(&killForce, "force", "f", false, "Kill immediately instead of asking the process to exit")

	sessionCmd.AddCommand(sessionStartCmd, sessionListCmd, sessionKillCmd)
	rootCmd.AddCommand(sessionCmd)
}

func runSessionStart(cmd *cobra.Command, a *app.App, args []string) error {
	ctx := cmd.Context()
	req := session.SpawnRequest{
		Branch:       startBranch,
		CreateBranch: startNew,
		Headless:     startHeadless,
		Task:         startTask,
	}
	if startIssue > 0 {
		is, err := issues.NewClient(a.Project().Path).View(ctx, startIssue)
		if err != nil {
			return err
		}
		req.Task = issues.TaskText(is)
		if req.Branch == "" {
			req.Branch = issues.SuggestedBranch(is)
			req.CreateBranch = !branchExists(ctx, a, req.Branch)
		}
	}
	s, err := a.StartSession(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "started %s (%s) on %s in %s\n", s.Name, s.ID, s.Branch, s.Dir)
	return nil
}

func runSessionList(cmd *cobra.Command, a *app.App, args []string) error {
	found, err := a.Detector().Scan(cmd.Context())
	if err != nil {
		return err
	}
	if listOrphaned {
		found = session.Orphans(found)
	}
	renderDetected(cmd.OutOrStdout(), found)
	return nil
}

func runSessionKill(cmd *cobra.Command, a *app.App, args []string) error {
	ctx := cmd.Context()
	pids, err := parsePIDs(args)
	if err != nil {
		return err
	}
	if killOrphaned {
		found, err := a.Detector().Scan(ctx)
		if err != nil {
			return err
		}
		pids = append(pids, session.PIDs(session.Orphans(found))...)
	}
	if len(pids) == 0 {
		return fmt.Errorf("nothing to kill: pass pids or --orphaned")
	}
	strength := procs.Graceful
	if killForce {
		strength = procs.Force
	}
	if !a.Prompter().Confirm(ctx, fmt.Sprintf("Kill %d session(s) (%s)?", len(pids), strength), false) {
		return nil
	}
	return printKillReport(cmd, a.Sessions().KillPIDs(ctx, pids, strength))
}

func printKillReport(cmd *cobra.Command, rep procs.KillReport) error {
	out := cmd.OutOrStdout()
	for _, pid := range rep.Killed {
		fmt.Fprintf(out, "killed %d\n", pid)
	}
	for _, pid := range rep.Failed {
		fmt.Fprintf(out, "failed %d: %v\n", pid, rep.Errors[pid])
	}
	if len(rep.Failed) > 0 {
		return fmt.Errorf("%d of %d kills failed", len(rep.Failed), len(rep.Failed)+len(rep.Killed))
	}
	return nil
}

func parsePIDs(args []string) ([]int, error) {
	pids := make([]int, 0, len(args))
	for _, arg := range args {
		pid, err := strconv.Atoi(arg)
		if err != nil || pid <= 0 {
			return nil, fmt.Errorf("invalid pid %q", arg)
		}
		pids = append(pids, pid)
	}
	return pids, nil
}

func branchExists(ctx context.Context, a *app.App, branch string) bool {
	branches, err := a.Engine().Branches(ctx)
	if err != nil {
		return false
	}
	for _, b := range branches {
		if b.Name == branch {
			return true
		}
	}
	return false
}

// Interactive flows used by the menu.

const (
	optBack      = "back"
	optCreate    = "create"
	optAbortPick = "abort-pick"
)

func sessionMenu(ctx context.Context, a *app.App) error {
	p := a.Prompter()
	found, err := a.Detector().Scan(ctx)
	if err != nil {
		logger.Warn("could not scan for agent processes", "err", err)
	}
	orphans := session.Orphans(found)
	managed := a.Sessions().List()

	opts := []prompt.Option{{Label: "Start new session", Value: "new"}}
	if _, ok := a.Sessions().Latest(); ok {
		opts = append(opts, prompt.Option{Label: "Pull changes from latest session for testing", Value: "promote"})
	}
	if len(orphans) > 0 {
		opts = append(opts, prompt.Option{Label: fmt.Sprintf("Kill all orphaned sessions (%d)", len(orphans)), Value: "kill-orphaned"})
	}
	if len(found) > 0 {
		opts = append(opts, prompt.Option{Label: "Select sessions to kill", Value: "kill-select"})
	}
	if len(managed) > 0 {
		opts = append(opts, prompt.Option{Label: "Terminate a managed session", Value: "terminate"})
	}
	opts = append(opts, prompt.Option{Label: "Back", Value: optBack})

	choice, err := p.Select(ctx, "Session actions", opts)
	if err != nil {
		return err
	}
	switch choice {
	case "new":
		return startSessionFlow(ctx, a)
	case "promote":
		latest, _ := a.Sessions().Latest()
		return promoteFlow(ctx, a, latest.Branch)
	case "kill-orphaned":
		return killFlow(ctx, a, session.PIDs(orphans))
	case "kill-select":
		var choices []prompt.Option
		for _, s := range found {
			label := fmt.Sprintf("%d  %s on %s", s.PID, s.Name, s.Branch)
			if s.IsOrphaned {
				label += " (orphaned)"
			}
			choices = append(choices, prompt.Option{Label: label, Value: strconv.Itoa(s.PID)})
		}
		picked, err := p.MultiSelect(ctx, "Sessions to kill", choices)
		if err != nil || len(picked) == 0 {
			return err
		}
		pids, err := parsePIDs(picked)
		if err != nil {
			return err
		}
		return killFlow(ctx, a, pids)
	case "terminate":
		var choices []prompt.Option
		for _, s := range managed {
			choices = append(choices, prompt.Option{Label: fmt.Sprintf("%s on %s", s.Name, s.Branch), Value: s.ID})
		}
		id, err := p.Select(ctx, "Session to terminate", choices)
		if err != nil {
			return err
		}
		res, err := a.TerminateSession(ctx, id)
		if err != nil {
			return err
		}
		logger.Info("session terminated", "name", res.Session.Name, "worktreeRemoved", res.WorktreeRemoved)
	}
	return nil
}

func killFlow(ctx context.Context, a *app.App, pids []int) error {
	strength, err := a.Prompter().Select(ctx, "How should they be stopped?", []prompt.Option{
		{Label: "Graceful (SIGTERM), allows cleanup", Value: "graceful"},
		{Label: "Force (SIGKILL), immediate", Value: "force"},
	})
	if err != nil {
		return err
	}
	s := procs.Graceful
	if strength == "force" {
		s = procs.Force
	}
	rep := a.Sessions().KillPIDs(ctx, pids, s)
	logger.Info("kill finished", "killed", len(rep.Killed), "failed", len(rep.Failed))
	for _, pid := range rep.Failed {
		logger.Warn("could not kill", "pid", pid, "err", rep.Errors[pid])
	}
	return nil
}

// startSessionFlow asks for project, branch, mode and task, then spawns.
func startSessionFlow(ctx context.Context, a *app.App) error {
	p := a.Prompter()
	pc, err := chooseProject(ctx, a)
	if err != nil {
		return err
	}
	if pc.Path != a.Project().Path {
		if err := a.SelectProject(ctx, pc.Name); err != nil {
			return err
		}
	}

	startOpts := []prompt.Option{{Label: "Quick start on main (recommended)", Value: "main"}}
	if issues.Available() {
		startOpts = append(startOpts, prompt.Option{Label: "Start with GitHub issue", Value: "issue"})
	}
	startOpts = append(startOpts, prompt.Option{Label: "Start on specific branch", Value: "branch"})
	how, err := p.Select(ctx, "How do you want to start?", startOpts)
	if err != nil {
		return err
	}

	req := session.SpawnRequest{Project: pc}
	switch how {
	case "issue":
		if err := issueRequest(ctx, a, &req); err != nil {
			return err
		}
	case "branch":
		if err := branchRequest(ctx, a, &req); err != nil {
			return err
		}
	}

	mode, err := p.Select(ctx, "Session mode", []prompt.Option{
		{Label: "Interactive, prompts for confirmation (recommended)", Value: "interactive"},
		{Label: "Headless, auto-accepts all actions", Value: "headless"},
	})
	if err != nil {
		return err
	}
	req.Headless = mode == "headless"

	if req.Task == "" {
		task, err := p.Input(ctx, "Task for the agent (optional)", "leave empty to start without a task")
		if err != nil {
			return err
		}
		req.Task = strings.TrimSpace(task)
	}

	s, err := a.StartSession(ctx, req)
	if err != nil {
		return err
	}
	logger.Info("session started", "name", s.Name, "branch", s.Branch, "dir", s.Dir, "pid", s.PID)
	return nil
}

func chooseProject(ctx context.Context, a *app.App) (config.ProjectConfig, error) {
	list := a.Projects().List()
	current := a.Project()
	opts := make([]prompt.Option, 0, len(list)+1)
	for _, pc := range list {
		label := pc.Name + "  " + pc.Path
		if pc.Path == current.Path {
			label += " (current)"
		}
		opts = append(opts, prompt.Option{Label: label, Value: pc.Name})
	}
	opts = append(opts, prompt.Option{Label: "+ Add another project", Value: optCreate})
	name, err := a.Prompter().Select(ctx, "Select project for this session", opts)
	if err != nil {
		return config.ProjectConfig{}, err
	}
	if name == optCreate {
		return addProjectFlow(ctx, a)
	}
	return a.Projects().Get(name)
}

func addProjectFlow(ctx context.Context, a *app.App) (config.ProjectConfig, error) {
	p := a.Prompter()
	path, err := p.Input(ctx, "Path to the project's git repository", "/path/to/repo")
	if err != nil {
		return config.ProjectConfig{}, err
	}
	path, err = filepath.Abs(strings.TrimSpace(path))
	if err != nil {
		return config.ProjectConfig{}, err
	}
	name, err := p.Input(ctx, "Project name", filepath.Base(path))
	if err != nil {
		return config.ProjectConfig{}, err
	}
	if name = strings.TrimSpace(name); name == "" {
		name = filepath.Base(path)
	}
	pc := config.ProjectConfig{Name: name, Path: path}
	if err := a.AddProject(ctx, pc); err != nil {
		return config.ProjectConfig{}, err
	}
	logger.Info("project added", "name", name, "path", path)
	return pc, nil
}

func issueRequest(ctx context.Context, a *app.App, req *session.SpawnRequest) error {
	p := a.Prompter()
	client := issues.NewClient(req.Project.Path)
	list, err := client.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return fmt.Errorf("no open issues in %s", req.Project.Name)
	}
	opts := make([]prompt.Option, len(list))
	for i, is := range list {
		opts[i] = prompt.Option{Label: fmt.Sprintf("#%d %s", is.Number, is.Title), Value: strconv.Itoa(is.Number)}
	}
	picked, err := p.Select(ctx, "Select an issue", opts)
	if err != nil {
		return err
	}
	n, _ := strconv.Atoi(picked)
	is, err := client.View(ctx, n)
	if err != nil {
		return err
	}
	req.Task = issues.TaskText(is)

	suggested := issues.SuggestedBranch(is)
	name, err := p.Input(ctx, "Branch name", suggested)
	if err != nil {
		return err
	}
	if name = strings.TrimSpace(name); name == "" {
		name = suggested
	}
	req.Branch = a.Engine().BranchName(name)
	req.CreateBranch = !branchExists(ctx, a, req.Branch)
	return nil
}

func branchRequest(ctx context.Context, a *app.App, req *session.SpawnRequest) error {
	p := a.Prompter()
	wts, err := a.Worktrees().List(ctx, req.Project)
	if err != nil {
		logger.Warn("could not list worktrees", "err", err)
	}
	var existing []prompt.Option
	for _, wt := range wts {
		if wt.Branch == "" || filepath.Clean(wt.Path) == filepath.Clean(req.Project.Path) {
			continue
		}
		existing = append(existing, prompt.Option{Label: wt.Branch + "  " + wt.Path, Value: wt.Branch})
	}

	opts := []prompt.Option{
		{Label: "Main directory (no isolation)", Value: "main"},
		{Label: "New worktree with a new branch", Value: optCreate},
	}
	if len(existing) > 0 {
		opts = append(opts, prompt.Option{Label: "Existing worktree", Value: "existing"})
	}
	where, err := p.Select(ctx, "Where should the session run?", opts)
	if err != nil {
		return err
	}
	switch where {
	case optCreate:
		name, err := p.Input(ctx, "New branch name", a.Config().BranchPrefix+"my-feature")
		if err != nil {
			return err
		}
		if strings.TrimSpace(name) == "" {
			return prompt.ErrAborted
		}
		req.Branch = a.Engine().BranchName(name)
		req.CreateBranch = true
	case "existing":
		branch, err := p.Select(ctx, "Select worktree", existing)
		if err != nil {
			return err
		}
		req.Branch = branch
	}
	return nil
}
