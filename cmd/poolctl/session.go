package main

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/joshuapare/poolkit/arena"
	"github.com/joshuapare/poolkit/arena/printer"
	"github.com/joshuapare/poolkit/internal/format"
)

// corruptTag replaces the integrity tag of a block hit by the corrupt op.
const corruptTag = 0x0BADF00D

// opResult is the outcome of one op, also used for JSON output.
type opResult struct {
	Op     string `json:"op"`
	OK     bool   `json:"ok"`
	Handle *int   `json:"handle,omitempty"`
	Offset *int   `json:"offset,omitempty"`
	Size   int    `json:"size,omitempty"`
	Detail string `json:"detail,omitempty"`
	Error  string `json:"error,omitempty"`
}

type blockJSON struct {
	Index  int    `json:"index"`
	Offset int    `json:"offset"`
	Size   int    `json:"size"`
	Status string `json:"status"`
	TagOK  bool   `json:"tag_ok"`
}

type report struct {
	Capacity  int          `json:"capacity"`
	Results   []opResult   `json:"results"`
	Stats     *arena.Stats `json:"stats,omitempty"`
	Blocks    []blockJSON  `json:"blocks"`
	Integrity string       `json:"integrity"`
}

// session applies ops to one arena. Allocations are numbered in the order
// they succeed; free:K refers to that number.
type session struct {
	a       *arena.Arena
	handles []arena.Handle
	results []opResult
}

func intPtr(v int) *int { return &v }

func (s *session) apply(o op) opResult {
	r := opResult{Op: o.text}
	detail, err := s.exec(o, &r)
	if err != nil {
		r.Error = err.Error()
	} else {
		r.OK = true
		r.Detail = detail
	}
	s.results = append(s.results, r)
	return r
}

func (s *session) exec(o op, r *opResult) (string, error) {
	a := s.a
	switch o.kind {
	case opAlloc:
		strat := a.Options().Strategy
		if o.strategy != nil {
			strat = *o.strategy
		}
		h, err := a.Alloc(o.n, strat)
		if err != nil {
			return "", err
		}
		info, err := a.Lookup(h)
		if err != nil {
			return "", err
		}
		id := len(s.handles)
		s.handles = append(s.handles, h)
		r.Handle = intPtr(id)
		r.Offset = intPtr(h.Offset())
		r.Size = info.Size
		return fmt.Sprintf("#%d at 0x%X, %d bytes granted (%s)", id, h.Offset(), info.Size, strat), nil

	case opFree:
		if o.n >= len(s.handles) {
			return "", errors.Newf("no allocation #%d (have %d)", o.n, len(s.handles))
		}
		h := s.handles[o.n]
		r.Handle = intPtr(o.n)
		r.Offset = intPtr(h.Offset())
		if err := a.Free(h); err != nil {
			return "", err
		}
		return fmt.Sprintf("released #%d", o.n), nil

	case opDefrag:
		n, err := a.Defragment()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d merges", n), nil

	case opCorrupt:
		blocks, err := a.Blocks()
		if err != nil {
			return "", err
		}
		if o.n >= len(blocks) {
			return "", errors.Newf("no block %d (have %d)", o.n, len(blocks))
		}
		b := blocks[o.n]
		format.SetTag(a.Region(), uint32(b.Offset), corruptTag)
		r.Offset = intPtr(b.Offset)
		return fmt.Sprintf("overwrote tag of block %d at 0x%X", o.n, b.Offset), nil

	case opStats:
		st, err := a.Stats()
		if err != nil {
			return "", err
		}
		return printer.StatusLine(st), nil

	case opDump:
		if !jsonOut && !quiet {
			fmt.Fprintln(os.Stdout)
			if err := s.printer().PrintBlocks(); err != nil {
				return "", err
			}
		}
		blocks, err := a.Blocks()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d blocks", len(blocks)), nil

	case opValidate:
		if err := a.Validate(); err != nil {
			return "", err
		}
		return "chain valid", nil

	case opReset:
		if err := a.Reset(); err != nil {
			return "", err
		}
		return fmt.Sprintf("generation %d", a.Generation()), nil
	}
	return "", errors.Newf("unhandled op %q", o.text)
}

func (s *session) printer() *printer.Printer {
	opts := printer.DefaultOptions()
	opts.HumanSizes = human
	opts.ShowTags = verbose
	return printer.New(s.a, os.Stdout, opts)
}

// run applies ops to a fresh arena and prints the outcome.
func run(ops []op) error {
	a, err := newArena()
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Destroy(); err != nil {
			printError("destroy: %v\n", err)
		}
	}()

	s := &session{a: a}
	for _, o := range ops {
		r := s.apply(o)
		if jsonOut {
			continue
		}
		if r.OK {
			printInfo("%-18s %s\n", r.Op, r.Detail)
		} else {
			printInfo("%-18s error: %s\n", r.Op, r.Error)
		}
	}

	if jsonOut {
		return printJSON(s.report())
	}
	if quiet {
		return nil
	}
	printInfo("\n")
	return s.printer().PrintSummary()
}

func (s *session) report() report {
	rep := report{
		Capacity:  s.a.Capacity(),
		Results:   s.results,
		Blocks:    []blockJSON{},
		Integrity: "ok",
	}
	if st, err := s.a.Stats(); err == nil {
		rep.Stats = &st
	}
	blocks, _ := s.a.Blocks()
	for _, b := range blocks {
		rep.Blocks = append(rep.Blocks, blockJSON{
			Index:  b.Index,
			Offset: b.Offset,
			Size:   b.Size,
			Status: b.Status.String(),
			TagOK:  b.TagOK(),
		})
	}
	if err := s.a.Corruption(); err != nil {
		rep.Integrity = err.Error()
	}
	return rep
}
