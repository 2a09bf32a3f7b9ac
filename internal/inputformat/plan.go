// Copyright (C) 2025-2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package inputformat

import (
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/cardinalhq/fileinput/internal/cbor"
	"github.com/cardinalhq/fileinput/internal/filereader"
	"github.com/cardinalhq/fileinput/internal/jobconf"
)

// PlanVersion is written into every plan.
const PlanVersion = 1

// Plan is what the planning process hands to the processes that read: the
// job configuration and its splits.
type Plan struct {
	Version int               `cbor:"version"`
	JobID   string            `cbor:"job_id"`
	Conf    map[string]string `cbor:"conf"`
	Splits  []PlanSplit       `cbor:"splits"`
}

// PlanSplit holds exactly one kind of split.
type PlanSplit struct {
	File     *filereader.FileSplit     `cbor:"file,omitempty"`
	Combined *filereader.CombinedSplit `cbor:"combined,omitempty"`
}

// Split returns the split held.
func (ps PlanSplit) Split() (filereader.Split, error) {
	switch {
	case ps.File != nil && ps.Combined == nil:
		return ps.File, nil
	case ps.Combined != nil && ps.File == nil:
		return ps.Combined, nil
	}
	return nil, fmt.Errorf("plan split must hold exactly one split")
}

// NewPlan snapshots conf and splits under a new job id.
func NewPlan(conf *jobconf.Configuration, splits []filereader.Split) (*Plan, error) {
	p := &Plan{
		Version: PlanVersion,
		JobID:   uuid.NewString(),
		Conf:    conf.Map(),
		Splits:  make([]PlanSplit, 0, len(splits)),
	}
	for _, s := range splits {
		switch v := s.(type) {
		case *filereader.FileSplit:
			p.Splits = append(p.Splits, PlanSplit{File: v})
		case *filereader.CombinedSplit:
			p.Splits = append(p.Splits, PlanSplit{Combined: v})
		default:
			return nil, fmt.Errorf("cannot plan split of type %T", s)
		}
	}
	return p, nil
}

// Configuration returns a fresh configuration holding the plan's settings.
func (p *Plan) Configuration() *jobconf.Configuration {
	return jobconf.FromMap(p.Conf)
}

// SplitList returns the plan's splits in order.
func (p *Plan) SplitList() ([]filereader.Split, error) {
	out := make([]filereader.Split, len(p.Splits))
	for i, ps := range p.Splits {
		s, err := ps.Split()
		if err != nil {
			return nil, fmt.Errorf("split %d: %w", i, err)
		}
		out[i] = s
	}
	return out, nil
}

// EncodePlan writes p as CBOR.
func EncodePlan(w io.Writer, p *Plan) error {
	c, err := cbor.NewConfig()
	if err != nil {
		return err
	}
	if err := c.NewEncoder(w).Encode(p); err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	return nil
}

// DecodePlan reads a plan written by EncodePlan.
func DecodePlan(r io.Reader) (*Plan, error) {
	c, err := cbor.NewConfig()
	if err != nil {
		return nil, err
	}
	var p Plan
	if err := c.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	if p.Version != PlanVersion {
		return nil, fmt.Errorf("unsupported plan version %d", p.Version)
	}
	if _, err := p.SplitList(); err != nil {
		return nil, err
	}
	return &p, nil
}
