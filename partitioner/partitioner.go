// Package partitioner implements the C7 component: the driver that
// orchestrates split -> extract -> mapper -> transport -> combine end to
// end and writes the resulting domains into the output tree (spec section
// 4.7). A Partitioner is a plain struct; multiple instances may coexist
// (spec section 9, "no global state").
package partitioner

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/notargets/meshrepart/attrtree"
	"github.com/notargets/meshrepart/combine"
	"github.com/notargets/meshrepart/extract"
	"github.com/notargets/meshrepart/mapper"
	"github.com/notargets/meshrepart/mesh"
	"github.com/notargets/meshrepart/mperr"
	"github.com/notargets/meshrepart/selection"
	"github.com/notargets/meshrepart/split"
	"github.com/notargets/meshrepart/transport"
)

// Option configures a Partitioner at construction time.
type Option func(*Partitioner)

// WithLogger attaches structured logging; defaults to zap.NewNop().
func WithLogger(log *zap.Logger) Option {
	return func(p *Partitioner) {
		if log != nil {
			p.log = log
		}
	}
}

// WithGroup attaches the process group the driver runs its collectives and
// point-to-point exchanges through (spec section 6.4); defaults to a
// size-1 transport.SerialGroup.
func WithGroup(g transport.Group) Option {
	return func(p *Partitioner) { p.group = g }
}

// Partitioner orchestrates one repartitioning run.
type Partitioner struct {
	log   *zap.Logger
	group transport.Group

	domains         []mesh.Domain
	entries         []split.Entry
	target          int
	fields          []string
	preserveMapping bool
	mergeTolerance  float64
}

// New builds a Partitioner with opts applied.
func New(opts ...Option) *Partitioner {
	p := &Partitioner{log: zap.NewNop(), group: transport.NewSerialGroup()}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Options mirrors the options schema (spec section 6.2), already decoded
// and interpreted by a caller (the config package's Options.Build, for the
// CLI path, or hand-built for programmatic use). SelectionsByDomain keys by
// a selection's own DomainID; a domain absent from the map gets a default
// whole-mesh selection (spec section 4.7 step 3).
type Options struct {
	Target             int
	Fields             []string
	PreserveMapping    bool
	MergeTolerance     float64
	SelectionsByDomain map[int][]selection.Selection
}

// Initialize implements spec section 4.7's initialize steps 1-4.
func (p *Partitioner) Initialize(root *attrtree.Node, opts Options) error {
	p.domains = normalizeDomains(root)
	if len(p.domains) == 0 {
		return fmt.Errorf("%w: mesh has no domains", mperr.ErrOptionMalformed)
	}

	p.fields = opts.Fields
	p.preserveMapping = opts.PreserveMapping
	p.mergeTolerance = opts.MergeTolerance

	entries := make([]split.Entry, 0, len(p.domains))
	for _, d := range p.domains {
		sels := opts.SelectionsByDomain[d.DomainID()]
		if len(sels) == 0 {
			sel, err := defaultWholeSelection(d, p.preserveMapping)
			if err != nil {
				return fmt.Errorf("%w: building default selection for domain %d: %v", mperr.ErrOptionMalformed, d.DomainID(), err)
			}
			sels = []selection.Selection{sel}
		}
		for _, sel := range sels {
			ok, err := sel.Applicable(d)
			if err != nil {
				return fmt.Errorf("%w: %w", mperr.ErrSelectionInapplicable, err)
			}
			if !ok {
				return fmt.Errorf("%w: %s selection inapplicable to topology %q on domain %d",
					mperr.ErrSelectionInapplicable, sel.Kind(), sel.Topology(), d.DomainID())
			}

			// Field selections fan out into one atomic, fixed-destination
			// sub-selection per distinct tag value right away (spec section
			// 4.1: "one-shot partition"). This must happen before target
			// resolution and independently of C3's split-to-target loop,
			// since a whole-mesh field selection otherwise counts as a
			// single entry and never triggers a split under a low or
			// default target.
			if sel.Kind() == selection.KindField {
				parts, err := sel.Partition(d)
				if err != nil {
					return fmt.Errorf("%w: fanning out field selection on domain %d: %v",
						mperr.ErrSelectionInapplicable, d.DomainID(), err)
				}
				for _, part := range parts {
					entries = append(entries, split.Entry{Sel: part, Domain: d})
				}
				continue
			}

			entries = append(entries, split.Entry{Sel: sel, Domain: d})
		}
	}
	p.entries = entries

	local := int64(opts.Target)
	if local <= 0 {
		local = 1
	}
	max, _ := p.group.AllReduceMaxLoc(local)
	p.target = int(max)
	if p.target < 1 {
		p.target = 1
	}

	// Section 8 invariant 5: number_of_output_domains = max(target,
	// |{fixed destination_domain ids}|). Field fan-out above (and any
	// explicit selection with a fixed destination_domain) can reserve more
	// domain ids than the requested target accounts for; clamp up rather
	// than silently dropping or colliding ids.
	if reserved := distinctFixedDomainCount(p.group, entries); reserved > p.target {
		p.log.Warn("partitioner: reserved destination domains exceed target, clamping target up",
			zap.Int("reserved", reserved), zap.Int("target", p.target))
		p.target = reserved
	}

	p.log.Info("partitioner: initialized",
		zap.Int("domains", len(p.domains)), zap.Int("selections", len(p.entries)), zap.Int("target", p.target))
	return nil
}

// Execute implements spec section 4.7's execute: run C3 -> C2 -> C4 -> C5
// -> C6 and write each combined domain owned by this rank into output
// (spec section 6.3's output layout).
func (p *Partitioner) Execute(output *attrtree.Node) error {
	traceID := uuid.New().String()
	log := p.log.With(zap.String("trace_id", traceID))

	entries, err := split.Run(p.group, p.entries, p.target, log)
	if err != nil {
		return fmt.Errorf("partitioner: split: %w", err)
	}

	chunks := make([]*extract.Chunk, 0, len(entries))
	for _, e := range entries {
		c, err := extract.Extract(e.Domain, e.Sel, extract.Options{SelectedFields: p.fields})
		if err != nil {
			return fmt.Errorf("partitioner: extract: %w", err)
		}
		chunks = append(chunks, c)
	}

	if err := mapper.Assign(p.group, chunks, p.target, log); err != nil {
		return fmt.Errorf("partitioner: mapper: %w", err)
	}

	owned, err := redistribute(p.group, chunks, log)
	if err != nil {
		return fmt.Errorf("partitioner: transport: %w", err)
	}

	groups := make(map[int][]*extract.Chunk)
	for _, c := range owned {
		groups[c.DestDomain] = append(groups[c.DestDomain], c)
	}
	domainIDs := make([]int, 0, len(groups))
	for id := range groups {
		domainIDs = append(domainIDs, id)
	}
	sort.Ints(domainIDs)

	var combineErrs *mperr.CombineErrors
	for _, id := range domainIDs {
		group := groups[id]
		topoName, err := mesh.NewDomain(group[0].Mesh).FirstTopologyName()
		if err != nil {
			combineErrs = combineErrs.Add(id, err)
			log.Warn("partitioner: domain combination failed", zap.Int("domain", id), zap.Error(err))
			continue
		}
		combined, err := combine.Combine(id, group, topoName, combine.Options{
			PointTolerance:  p.mergeTolerance,
			PreserveMapping: p.preserveMapping,
		})
		if err != nil {
			combineErrs = combineErrs.Add(id, err)
			log.Warn("partitioner: domain combination failed", zap.Int("domain", id), zap.Error(err))
			continue
		}
		log.Info("partitioner: combined domain", zap.Int("domain", id), zap.Int("inputs", len(group)))
		writeDomain(output, id, combined, p.target == 1)
	}

	for _, c := range chunks {
		c.Free()
	}
	if combineErrs != nil {
		return combineErrs
	}
	return nil
}

// writeDomain implements spec section 6.3: exactly one output domain
// writes directly into output; otherwise each domain becomes a
// "domain_XXXXXX" child.
func writeDomain(output *attrtree.Node, id int, combined *attrtree.Node, direct bool) {
	if direct {
		for _, child := range combined.Children() {
			output.AddChild(child.Name(), child)
		}
		return
	}
	output.AddChild(fmt.Sprintf("domain_%06d", id), combined)
}

// normalizeDomains implements spec section 4.7 step 1: a single domain
// (identified by carrying a "coordsets" child directly) is lifted to a
// length-1 list; otherwise every child carrying its own "coordsets" is
// treated as one domain of a multi-domain mesh.
func normalizeDomains(root *attrtree.Node) []mesh.Domain {
	if root.HasChild("coordsets") {
		return []mesh.Domain{mesh.NewDomain(root)}
	}
	var out []mesh.Domain
	for _, child := range root.Children() {
		if child.HasChild("coordsets") {
			out = append(out, mesh.NewDomain(child))
		}
	}
	return out
}

// defaultWholeSelection implements spec section 4.7 step 3: the
// best-matching variant for a whole-mesh selection is logical for an
// implicit topology, ranges otherwise.
func defaultWholeSelection(d mesh.Domain, preserveMapping bool) (selection.Selection, error) {
	topoName, err := d.FirstTopologyName()
	if err != nil {
		return nil, err
	}
	topo, err := d.Topology(topoName)
	if err != nil {
		return nil, err
	}
	kind, err := topo.Kind()
	if err != nil {
		return nil, err
	}
	if kind.Implicit() {
		dims, err := topo.LogicalDims()
		if err != nil {
			return nil, err
		}
		var start, end [3]int
		for a, n := range dims {
			start[a] = 0
			end[a] = n - 1
		}
		return selection.NewLogical(d.DomainID(), topoName, start, end, preserveMapping), nil
	}
	n, err := topo.NumElements()
	if err != nil {
		return nil, err
	}
	var items []selection.Range
	if n > 0 {
		items = []selection.Range{{Lo: 0, Hi: int64(n - 1)}}
	}
	return selection.NewRanges(d.DomainID(), topoName, items, preserveMapping), nil
}
