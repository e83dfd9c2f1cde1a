// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package procs

import (
	"encoding/csv"
	"strconv"
	"strings"
)

// ParsePS parses `ps -eo pid,tty,command` output. The header line and
// malformed rows are skipped. Unknown terminals ("?" and "??") are kept
// verbatim so callers can classify them.
func ParsePS(out string) []Process {
	var procs []Process
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		pid, err := strconv.Atoi(fields[0])
		if err != nil {
			continue // header
		}
		procs = append(procs, Process{
			PID:     pid,
			TTY:     fields[1],
			Command: strings.Join(fields[2:], " "),
		})
	}
	return procs
}

// ParseLsofCwd extracts the cwd from `lsof -a -p PID -d cwd -Fn` output.
func ParseLsofCwd(out string) string {
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "n/") {
			return strings.TrimSpace(line[1:])
		}
	}
	return ""
}

// ParseCimCSV parses PowerShell
// `Get-CimInstance Win32_Process | Select-Object ProcessId,CommandLine | ConvertTo-Csv -NoTypeInformation`.
func ParseCimCSV(out string) []Process {
	r := csv.NewReader(strings.NewReader(out))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil
	}
	var procs []Process
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		pid, err := strconv.Atoi(strings.TrimSpace(row[0]))
		if err != nil || row[1] == "" {
			continue
		}
		procs = append(procs, Process{PID: pid, Command: row[1]})
	}
	return procs
}

// ParseTasklistCSV parses `tasklist /V /FO CSV /NH` into pid -> window
// title. Rows whose title is "N/A" have no console window.
func ParseTasklistCSV(out string) map[int]string {
	r := csv.NewReader(strings.NewReader(out))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	titles := make(map[int]string)
	if err != nil {
		return titles
	}
	for _, row := range rows {
		if len(row) < 9 {
			continue
		}
		pid, err := strconv.Atoi(row[1])
		if err != nil {
			continue
		}
		title := strings.TrimSpace(row[len(row)-1])
		if title == "N/A" {
			title = ""
		}
		titles[pid] = title
	}
	return titles
}

// ParseNetstatListening parses `netstat -ano` output into listening
// port -> pid.
func ParseNetstatListening(out string) map[int]int {
	ports := make(map[int]int)
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 5 || !strings.EqualFold(fields[0], "TCP") || fields[3] != "LISTENING" {
			continue
		}
		local := fields[1]
		i := strings.LastIndexByte(local, ':')
		if i < 0 {
			continue
		}
		port, err := strconv.Atoi(local[i+1:])
		if err != nil {
			continue
		}
		pid, _ := strconv.Atoi(fields[4])
		ports[port] = pid
	}
	return ports
}
