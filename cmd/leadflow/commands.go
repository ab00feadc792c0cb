package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fixora/leadflow/internal/domain"
	"github.com/fixora/leadflow/internal/usecase"
	"github.com/fixora/leadflow/pkg/apperror"
)

type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string, out io.Writer) error
}

var commands = map[string]command{
	"submit":    {"Open a status change request for a lead", submitCommand},
	"decide":    {"Approve or reject a pending request", decideCommand},
	"active":    {"List requests in the active set", activeCommand},
	"archived":  {"List archived requests", archivedCommand},
	"record":    {"Append a change log entry for an entity", recordCommand},
	"changelog": {"Show the change log of an entity", changelogCommand},
	"reconcile": {"Complete archival of resolved requests once", reconcileCommand},
	"run":       {"Reconcile periodically until interrupted", runCommand},
}

// usageError reports bad command line input
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }

func usagef(format string, args ...interface{}) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		return &usageError{err: err}
	}
	return nil
}

func submitCommand(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	lead := fs.String("lead", "", "lead id")
	by := fs.String("by", "", "id of the requesting agent")
	status := fs.String("status", "", "requested status: GREEN, YELLOW, WHITE or RED")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	req, err := a.workflow.SubmitRequest(ctx, usecase.SubmitRequestInput{
		LeadID:          *lead,
		RequestedBy:     *by,
		RequestedStatus: domain.LeadStatus(strings.ToUpper(strings.TrimSpace(*status))),
	})
	if err != nil {
		return err
	}
	return writeJSON(out, req)
}

func decideCommand(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("decide", flag.ContinueOnError)
	requestID := fs.String("request", "", "request id")
	actorID := fs.String("actor", "", "id of the deciding user")
	decision := fs.String("decision", "", "approve or reject")
	comment := fs.String("comment", "", "optional comment")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	d, err := parseDecision(*decision)
	if err != nil {
		return err
	}

	actor, err := a.identities.ResolveIdentity(ctx, *actorID)
	if err != nil {
		return err
	}

	in := usecase.DecideInput{
		RequestID: *requestID,
		Actor:     actor.Actor(),
		Decision:  d,
	}
	if flagSet(fs, "comment") {
		in.Comment = comment
	}

	archived, err := a.workflow.Decide(ctx, in)
	if err != nil {
		return err
	}
	return writeJSON(out, archived)
}

func activeCommand(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("active", flag.ContinueOnError)
	lead := fs.String("lead", "", "filter by lead id")
	by := fs.String("by", "", "filter by requesting agent")
	approval := fs.String("approval", "", "filter by approval status")
	requested := fs.String("requested", "", "filter by requested status")
	limit := fs.Int("limit", 20, "page size")
	offset := fs.Int("offset", 0, "page offset")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	filter := domain.RequestFilter{Limit: *limit, Offset: *offset}
	if *lead != "" {
		filter.LeadID = lead
	}
	if *by != "" {
		filter.RequestedBy = by
	}
	if *approval != "" {
		s := domain.ApprovalStatus(strings.ToUpper(*approval))
		filter.ApprovalStatus = &s
	}
	if *requested != "" {
		s := domain.LeadStatus(strings.ToUpper(*requested))
		filter.RequestedStatus = &s
	}

	requests, err := a.workflow.ListActiveRequests(ctx, filter)
	if err != nil {
		return err
	}
	if requests == nil {
		requests = []*domain.LeadStatusRequest{}
	}
	return writeJSON(out, requests)
}

func archivedCommand(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("archived", flag.ContinueOnError)
	lead := fs.String("lead", "", "filter by lead id")
	approval := fs.String("approval", "", "filter by approval status")
	from := fs.String("from", "", "archived at or after (RFC 3339)")
	to := fs.String("to", "", "archived at or before (RFC 3339)")
	limit := fs.Int("limit", 20, "page size")
	offset := fs.Int("offset", 0, "page offset")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	filter := domain.ArchiveFilter{Limit: *limit, Offset: *offset}
	if *lead != "" {
		filter.LeadID = lead
	}
	if *approval != "" {
		s := domain.ApprovalStatus(strings.ToUpper(*approval))
		filter.ApprovalStatus = &s
	}
	var err error
	if filter.ArchivedFrom, err = parseTime("from", *from); err != nil {
		return err
	}
	if filter.ArchivedTo, err = parseTime("to", *to); err != nil {
		return err
	}

	records, err := a.workflow.ListArchivedRequests(ctx, filter)
	if err != nil {
		return err
	}
	if records == nil {
		records = []*domain.ArchivedLeadStatusRequest{}
	}
	return writeJSON(out, records)
}

func recordCommand(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("record", flag.ContinueOnError)
	entity := fs.String("entity", "", "entity id")
	agent := fs.String("agent", "", "id of the agent making the change, empty for system changes")
	changes := fs.String("changes", "", `JSON array of {"field_name","old_value","new_value"}`)
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	var diffs []domain.FieldChange
	if *changes != "" {
		if err := json.Unmarshal([]byte(*changes), &diffs); err != nil {
			return usagef("invalid -changes: %v", err)
		}
	}

	var agentID *string
	if *agent != "" {
		agentID = agent
	}

	entry, err := a.workflow.RecordChange(ctx, *entity, agentID, diffs)
	if err != nil {
		return err
	}
	return writeJSON(out, entry)
}

func changelogCommand(ctx context.Context, a *app, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("changelog", flag.ContinueOnError)
	entity := fs.String("entity", "", "entity id")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	entries, err := a.workflow.ListChangeLog(ctx, *entity)
	if err != nil {
		return err
	}
	return writeJSON(out, entries)
}

func reconcileCommand(ctx context.Context, a *app, args []string, out io.Writer) error {
	result, err := a.reconciler.Sweep(ctx)
	if err != nil {
		return err
	}
	return writeJSON(out, result)
}

func runCommand(ctx context.Context, a *app, args []string, out io.Writer) error {
	a.logger.Info(ctx, "Reconciler started", map[string]interface{}{
		"interval": a.cfg.Workflow.ReconcileInterval.String(),
	})
	err := a.reconciler.Run(ctx)
	if errors.Is(err, context.Canceled) {
		a.logger.Info(ctx, "Reconciler stopped", nil)
		return nil
	}
	return err
}

func parseDecision(s string) (domain.Decision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approve":
		return domain.DecisionApprove, nil
	case "reject":
		return domain.DecisionReject, nil
	}
	return domain.ParseDecision(s)
}

func parseTime(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, usagef("invalid -%s: %v", name, err)
	}
	return &t, nil
}

func flagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeError prints the mapped error as JSON
func writeError(w io.Writer, err error) {
	_ = writeJSON(w, map[string]interface{}{"error": apperror.MapError(err)})
}
