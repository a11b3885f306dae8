package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"f1telemetryapi/pkg/lifecycle"
	"f1telemetryapi/pkg/model"
	"f1telemetryapi/pkg/webserver"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
)

const (
	symbolFastest = "⏱"
	inspectUsage  = "usage: inspect races <year> | inspect drivers <year> <round> | inspect laps <year> <round> <driver> | inspect telemetry <year> <round> <driver> [lap] | inspect session <year> <round>"
)

// runInspect answers one query from the command line and renders it as a
// table on out.
func runInspect(ctx context.Context, api *webserver.API, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New(inspectUsage)
	}

	scope := lifecycle.NewScope("inspect "+args[0], nil)
	defer scope.Release()

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)

	switch args[0] {
	case "races":
		nums, err := intArgs(args[1:], 1)
		if err != nil {
			return err
		}
		events, err := api.EventSchedule(ctx, scope, nums[0])
		if err != nil {
			return err
		}
		t.AppendHeader(table.Row{"#", "Event", "Location", "Date"})
		for _, e := range events {
			t.AppendRow(table.Row{e.Round, e.Name, e.Location, e.Date})
		}

	case "drivers":
		nums, err := intArgs(args[1:], 2)
		if err != nil {
			return err
		}
		drivers, err := api.SessionDrivers(ctx, scope, nums[0], nums[1], api.DefaultSessionType())
		if err != nil {
			return err
		}
		t.AppendHeader(table.Row{"Driver", "No", "Team"})
		for _, d := range drivers {
			t.AppendRow(table.Row{d.Code, d.Number, d.Team})
		}

	case "laps":
		if len(args) != 4 {
			return errors.New(inspectUsage)
		}
		nums, err := intArgs(args[1:3], 2)
		if err != nil {
			return err
		}
		records, err := api.LapRecords(ctx, scope, nums[0], nums[1], api.DefaultSessionType(), args[3])
		if err != nil {
			return err
		}
		t.AppendHeader(table.Row{"Lap", "Time", ""})
		for _, l := range records {
			mark := ""
			if l.IsFastest {
				mark = symbolFastest
			}
			t.AppendRow(table.Row{l.LapNumber, l.LapTime, mark})
		}
		t.AppendFooter(table.Row{"", fmt.Sprintf("%d laps", len(records)), ""})

	case "telemetry":
		if len(args) != 4 && len(args) != 5 {
			return errors.New(inspectUsage)
		}
		numArgs := append([]string{args[1], args[2]}, args[4:]...)
		nums, err := intArgs(numArgs, len(numArgs))
		if err != nil {
			return err
		}
		lap := 0
		if len(nums) == 3 {
			lap = nums[2]
		}
		samples, err := api.LapSamples(ctx, scope, nums[0], nums[1], api.DefaultSessionType(), args[3], lap)
		if err != nil {
			return err
		}
		t.AppendHeader(table.Row{"Time", "Speed", "Gear", "Throttle", "Brake"})
		for _, s := range samples {
			t.AppendRow(table.Row{
				fmt.Sprintf("%.3f", s.Time),
				fmt.Sprintf("%.0f", s.Speed),
				s.Gear,
				fmt.Sprintf("%.0f%%", s.Throttle),
				brakeText(s.Brake),
			})
		}

	case "session":
		nums, err := intArgs(args[1:], 2)
		if err != nil {
			return err
		}
		sizes, err := api.SessionTables(ctx, scope, nums[0], nums[1], api.DefaultSessionType())
		if err != nil {
			return err
		}
		t.AppendHeader(table.Row{"Table", "Rows"})
		for _, ts := range sizes {
			t.AppendRow(table.Row{ts.Table, humanize.Comma(int64(ts.Rows))})
		}

	default:
		return errors.Errorf("unknown query %q\n%s", args[0], inspectUsage)
	}

	t.Render()
	return nil
}

func brakeText(b model.Brake) string {
	if !b.IsFlag() {
		return fmt.Sprintf("%.0f%%", b.Pressure()*100)
	}
	if b.On() {
		return "on"
	}
	return "off"
}

func intArgs(args []string, n int) ([]int, error) {
	if len(args) != n {
		return nil, errors.New(inspectUsage)
	}
	nums := make([]int, n)
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return nil, errors.Errorf("%q is not a number", a)
		}
		nums[i] = v
	}
	return nums, nil
}
