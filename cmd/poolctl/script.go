package main

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/joshuapare/poolkit/arena"
)

type opKind string

const (
	opAlloc    opKind = "alloc"
	opFree     opKind = "free"
	opDefrag   opKind = "defrag"
	opCorrupt  opKind = "corrupt"
	opStats    opKind = "stats"
	opDump     opKind = "dump"
	opValidate opKind = "validate"
	opReset    opKind = "reset"
)

// op is one parsed script step.
//
//	alloc:N[:strategy]  allocate N bytes (strategy defaults to --strategy)
//	free:K              release the K-th successful allocation (0-based)
//	corrupt:I           overwrite the integrity tag of block I
//	defrag | stats | dump | validate | reset
type op struct {
	kind     opKind
	n        int
	strategy *arena.Strategy
	text     string
}

func parseOp(s string) (op, error) {
	text := strings.TrimSpace(s)
	parts := strings.Split(text, ":")
	o := op{kind: opKind(strings.ToLower(parts[0])), text: text}

	argc := map[opKind][2]int{
		opAlloc:    {1, 2},
		opFree:     {1, 1},
		opCorrupt:  {1, 1},
		opDefrag:   {0, 0},
		opStats:    {0, 0},
		opDump:     {0, 0},
		opValidate: {0, 0},
		opReset:    {0, 0},
	}
	bounds, ok := argc[o.kind]
	if !ok {
		return op{}, errors.Newf("unknown op %q", text)
	}
	args := parts[1:]
	if len(args) < bounds[0] || len(args) > bounds[1] {
		return op{}, errors.Newf("op %q: expected %d to %d argument(s), got %d", text, bounds[0], bounds[1], len(args))
	}
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return op{}, errors.Wrapf(err, "op %q", text)
		}
		if n < 0 && o.kind != opAlloc {
			return op{}, errors.Newf("op %q: negative index", text)
		}
		o.n = n
	}
	if len(args) == 2 {
		s, err := arena.ParseStrategy(args[1])
		if err != nil {
			return op{}, errors.Wrapf(err, "op %q", text)
		}
		o.strategy = &s
	}
	return o, nil
}

// parseScript reads one op per line or whitespace-separated field. Blank
// lines and text after '#' are ignored.
func parseScript(r io.Reader) ([]op, error) {
	var ops []op
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		for _, field := range strings.Fields(text) {
			o, err := parseOp(field)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", line)
			}
			ops = append(ops, o)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "read script")
	}
	return ops, nil
}

func parseOps(args []string) ([]op, error) {
	ops := make([]op, 0, len(args))
	for _, a := range args {
		o, err := parseOp(a)
		if err != nil {
			return nil, err
		}
		ops = append(ops, o)
	}
	return ops, nil
}
