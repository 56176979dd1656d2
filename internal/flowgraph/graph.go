package flowgraph

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/Paulwhoisaghostnet/Tezos-Analytics-sub000/internal/models"
)

// DefaultNodeCap bounds the rendered graph; beyond it the layout becomes
// unreadable and the JSON payload balloons.
const DefaultNodeCap = 150

// BuildGraph aggregates classified flows into a weighted directed graph.
// Nodes beyond the cap are dropped by activity rank, along with any edge
// touching a dropped node, so the node set always equals the edge
// endpoint set.
func (e *Engine) BuildGraph(ctx context.Context, nodeCap int) (*models.FlowGraph, error) {
	if nodeCap <= 0 {
		nodeCap = DefaultNodeCap
	}
	flows, err := e.store.ListXtzFlows(ctx)
	if err != nil {
		return nil, err
	}

	type edgeKey struct{ from, to string }
	agg := map[edgeKey]*models.GraphEdge{}
	for _, f := range flows {
		if f.Sender == "" || f.Target == "" {
			continue
		}
		k := edgeKey{from: f.Sender, to: f.Target}
		ed := agg[k]
		if ed == nil {
			ed = &models.GraphEdge{From: f.Sender, To: f.Target}
			agg[k] = ed
		}
		ed.TotalValue += f.Amount
		ed.Count++
	}

	edges := make([]*models.GraphEdge, 0, len(agg))
	for _, ed := range agg {
		ed.AvgValue = float64(ed.TotalValue) / float64(ed.Count)
		edges = append(edges, ed)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})

	activity := map[string]int64{}
	for _, ed := range edges {
		activity[ed.From] += ed.Count
		activity[ed.To] += ed.Count
	}

	keep := topNodes(activity, nodeCap)

	var kept []*models.GraphEdge
	for _, ed := range edges {
		if keep[ed.From] && keep[ed.To] {
			kept = append(kept, ed)
		}
	}

	// Recompute the node set from retained edges so no node dangles.
	present := map[string]bool{}
	for _, ed := range kept {
		present[ed.From] = true
		present[ed.To] = true
	}

	colorEdges(kept)

	regCats, err := e.store.RegistryCategories(ctx)
	if err != nil {
		return nil, err
	}
	labels, err := e.nodeLabels(ctx)
	if err != nil {
		return nil, err
	}

	addrs := make([]string, 0, len(present))
	for a := range present {
		addrs = append(addrs, a)
	}
	sort.Strings(addrs)

	nodes := make([]models.GraphNode, 0, len(addrs))
	for _, a := range addrs {
		nodes = append(nodes, models.GraphNode{
			Address:  a,
			Label:    labels[a],
			Category: regCats[a],
			Activity: activity[a],
			Size:     math.Log10(float64(activity[a])+1)*5 + 5,
		})
	}

	out := make([]models.GraphEdge, 0, len(kept))
	for _, ed := range kept {
		out = append(out, *ed)
	}
	log.Printf("[flowgraph] graph: %d nodes, %d edges (cap %d)", len(nodes), len(out), nodeCap)
	return &models.FlowGraph{Nodes: nodes, Edges: out}, nil
}

// topNodes returns the cap highest-activity addresses. Ties break on
// address so the cut is deterministic.
func topNodes(activity map[string]int64, limit int) map[string]bool {
	type rank struct {
		addr string
		act  int64
	}
	ranks := make([]rank, 0, len(activity))
	for a, n := range activity {
		ranks = append(ranks, rank{addr: a, act: n})
	}
	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].act != ranks[j].act {
			return ranks[i].act > ranks[j].act
		}
		return ranks[i].addr < ranks[j].addr
	})
	if len(ranks) > limit {
		ranks = ranks[:limit]
	}
	keep := make(map[string]bool, len(ranks))
	for _, r := range ranks {
		keep[r.addr] = true
	}
	return keep
}

// colorEdges paints each edge on a blue-purple-red gradient normalized
// linearly against the global total-value range.
func colorEdges(edges []*models.GraphEdge) {
	if len(edges) == 0 {
		return
	}
	min, max := edges[0].TotalValue, edges[0].TotalValue
	for _, ed := range edges {
		if ed.TotalValue < min {
			min = ed.TotalValue
		}
		if ed.TotalValue > max {
			max = ed.TotalValue
		}
	}
	span := float64(max - min)
	for _, ed := range edges {
		t := 0.0
		if span > 0 {
			t = float64(ed.TotalValue-min) / span
		}
		r := int(math.Round(255 * t))
		b := int(math.Round(255 * (1 - t)))
		ed.Color = fmt.Sprintf("#%02x00%02x", r, b)
	}
}

// nodeLabels maps addresses to their best display name: alias first, then
// the resolved domain.
func (e *Engine) nodeLabels(ctx context.Context) (map[string]string, error) {
	entries, err := e.store.ListRegistry(ctx)
	if err != nil {
		return nil, err
	}
	labels := make(map[string]string, len(entries))
	for _, r := range entries {
		switch {
		case r.Alias != "":
			labels[r.Address] = r.Alias
		case r.TezosDomain != "":
			labels[r.Address] = r.TezosDomain
		}
	}
	return labels, nil
}
