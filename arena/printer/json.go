package printer

import (
	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// printJSON writes one JSON object holding the requested sections.
func (p *Printer) printJSON(blocks, summary bool) error {
	w := jwriter.NewWriter()
	obj := w.Object()
	obj.Name("capacity").Int(p.src.Capacity())

	if blocks {
		list, walkErr := p.src.Blocks()
		arr := obj.Name("blocks").Array()
		for _, b := range list {
			bo := arr.Object()
			bo.Name("index").Int(b.Index)
			bo.Name("offset").Int(b.Offset)
			bo.Name("size").Int(b.Size)
			bo.Name("status").String(b.Status.String())
			bo.Name("tag").Int(int(b.Tag))
			bo.Name("tag_ok").Bool(b.TagOK())
			bo.End()
		}
		arr.End()
		if walkErr != nil {
			obj.Name("walk_error").String(walkErr.Error())
		}
	}

	if summary {
		if s, err := p.src.Stats(); err == nil {
			so := obj.Name("stats").Object()
			so.Name("total_free").Int(s.TotalFree)
			so.Name("total_allocated").Int(s.TotalAllocated)
			so.Name("largest_free").Int(s.LargestFree)
			so.Name("blocks").Int(s.Blocks)
			so.Name("free_blocks").Int(s.FreeBlocks)
			so.Name("allocated_blocks").Int(s.AllocatedBlocks)
			so.Name("header_bytes").Int(s.HeaderBytes)
			so.Name("fragmentation").Float64(s.Fragmentation)
			so.Name("utilization").Float64(s.Utilization)
			so.End()
		}
		if c := p.src.Corruption(); c != nil {
			obj.Name("integrity").String("corrupted")
			obj.Name("corruption").String(c.Error())
		} else {
			obj.Name("integrity").String("ok")
		}
	}
	obj.End()

	if err := w.Error(); err != nil {
		return errors.Wrap(err, "printer: encode")
	}
	out := append(w.Bytes(), '\n')
	_, err := p.writer.Write(out)
	return err
}
