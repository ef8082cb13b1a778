package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/rwa/internal/audit"
)

// complaintTransitions lists the statuses reachable from each status.
var complaintTransitions = map[ComplaintStatus][]ComplaintStatus{
	ComplaintOpen:       {ComplaintInProgress, ComplaintClosed},
	ComplaintInProgress: {ComplaintResolved},
	ComplaintResolved:   {ComplaintClosed},
	ComplaintClosed:     nil,
}

// CanTransition reports whether a complaint may move from one status to another.
func CanTransition(from, to ComplaintStatus) bool {
	for _, s := range complaintTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s *Service) readComplaints(ctx context.Context) ([]Complaint, [][]string, TabDefinition, error) {
	rows, def, err := s.readTab(ctx, TabComplaints)
	if err != nil {
		return nil, nil, def, err
	}
	out := make([]Complaint, 0, len(rows))
	for i, row := range rows {
		if cell(row, cmpID) == "" && cell(row, cmpDescription) == "" {
			continue
		}
		out = append(out, complaintFromRow(i, row))
	}
	return out, rows, def, nil
}

// RaiseComplaint files a complaint or suggestion for a flat.
func (s *Service) RaiseComplaint(ctx context.Context, nc NewComplaint) (Complaint, error) {
	kind, ok := ParseComplaintKind(nc.Kind)
	if !ok {
		return Complaint{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidInput, nc.Kind)
	}
	desc := strings.TrimSpace(nc.Description)
	if desc == "" {
		return Complaint{}, fmt.Errorf("%w: description is required", ErrInvalidInput)
	}
	member, err := s.GetMember(ctx, nc.FlatNo)
	if err != nil {
		return Complaint{}, err
	}

	unlock := s.lock(TabComplaints)
	defer unlock()

	_, rows, def, err := s.readComplaints(ctx)
	if err != nil {
		return Complaint{}, err
	}
	today := s.today()
	c := Complaint{
		Row:         len(rows),
		ID:          formatID(def.IDPrefix, nextSequence(rows, cmpID, def.IDPrefix)),
		FlatNo:      member.FlatNo,
		Kind:        kind,
		Category:    strings.TrimSpace(nc.Category),
		Description: desc,
		Status:      ComplaintOpen,
		RaisedOn:    today,
		UpdatedOn:   today,
	}
	if err := s.appendRows(ctx, def, c.row()); err != nil {
		return Complaint{}, err
	}

	s.logAudit(ctx, audit.Params{
		Action:   audit.ActionComplaintRaise,
		Tab:      def.Name,
		Flat:     c.FlatNo,
		RowKey:   c.ID,
		NewValue: string(c.Kind),
		RowData:  map[string]interface{}{"category": c.Category},
	})
	return c, nil
}

// ListComplaints returns complaints matching f, newest first.
func (s *Service) ListComplaints(ctx context.Context, f ComplaintFilter) ([]Complaint, error) {
	all, _, _, err := s.readComplaints(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Complaint, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		c := all[i]
		if f.FlatNo != "" && !sameFlat(c.FlatNo, f.FlatNo) {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if f.Kind != "" && c.Kind != f.Kind {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// UpdateComplaintStatus moves a complaint to status, appending remarks to
// any existing ones. Closed complaints are final.
func (s *Service) UpdateComplaintStatus(ctx context.Context, id string, status ComplaintStatus, remarks string) (Complaint, error) {
	id = strings.ToUpper(strings.TrimSpace(id))

	unlock := s.lock(TabComplaints)
	defer unlock()

	all, _, def, err := s.readComplaints(ctx)
	if err != nil {
		return Complaint{}, err
	}
	for _, c := range all {
		if c.ID != id {
			continue
		}
		if !CanTransition(c.Status, status) {
			return Complaint{}, fmt.Errorf("%w: %s from %s to %s", ErrInvalidTransition, id, c.Status, status)
		}
		old := c.Status
		c.Status = status
		c.UpdatedOn = s.today()
		if r := strings.TrimSpace(remarks); r != "" {
			if c.Remarks != "" {
				c.Remarks += "; "
			}
			c.Remarks += r
		}
		if err := s.updateRow(ctx, def, c.Row, cmpID, c.row()); err != nil {
			return Complaint{}, err
		}
		s.logAudit(ctx, audit.Params{
			Action:   audit.ActionComplaintStatus,
			Tab:      def.Name,
			Flat:     c.FlatNo,
			RowKey:   c.ID,
			OldValue: string(old),
			NewValue: string(status),
			Reason:   strings.TrimSpace(remarks),
		})
		return c, nil
	}
	return Complaint{}, fmt.Errorf("complaint %s: %w", id, ErrNotFound)
}
