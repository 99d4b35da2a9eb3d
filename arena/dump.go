package arena

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"go.uber.org/zap"

	"github.com/joshuapare/poolkit/internal/format"
)

// WriteDetailedMap writes a JSON description of the arena: a summary
// object followed by every block in address order. Blocks with a damaged
// tag are included with "tag_ok": false; a walk that cannot continue is
// reported in an "error" field after the blocks seen so far.
func (a *Arena) WriteDetailedMap(w io.Writer) error {
	if err := a.live(); err != nil {
		return err
	}
	t, _ := a.totals()

	jw := jwriter.NewWriter()
	obj := jw.Object()
	obj.Name("arena").Int(int(a.id))
	obj.Name("generation").Int(int(a.gen))
	obj.Name("capacity").Int(int(a.capacity))
	obj.Name("header_size").Int(HeaderSize)
	obj.Name("total_free").Int(int(t.free))
	obj.Name("total_allocated").Int(int(a.allocated))
	obj.Name("largest_free").Int(int(t.largest))

	arr := obj.Name("blocks").Array()
	walkErr := a.traverse(false, func(idx int, h format.Header) bool {
		b := arr.Object()
		b.Name("index").Int(idx)
		b.Name("offset").Int(int(h.Offset))
		b.Name("payload_offset").Int(int(h.PayloadOffset()))
		b.Name("size").Int(int(h.Size))
		b.Name("status").String(statusOf(h).String())
		b.Name("tag_ok").Bool(h.TagOK())
		b.End()
		return true
	})
	arr.End()
	if walkErr != nil {
		obj.Name("error").String(walkErr.Error())
	}
	obj.End()

	if err := jw.Error(); err != nil {
		return errors.Wrap(err, "arena: encode map")
	}
	_, err := w.Write(jw.Bytes())
	return err
}

// LogAllocations logs one debug entry per allocated block through logger.
// Useful for reporting leaks before Destroy.
func (a *Arena) LogAllocations(logger *zap.Logger) {
	if a.live() != nil || logger == nil {
		return
	}
	_ = a.traverse(false, func(idx int, h format.Header) bool {
		if h.Allocated() {
			logger.Debug("live allocation",
				zap.Uint64("arena", a.id),
				zap.Int("index", idx),
				zap.Uint32("offset", h.PayloadOffset()),
				zap.Uint32("size", h.Size),
				zap.Bool("tag_ok", h.TagOK()),
			)
		}
		return true
	})
}
