package vector

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/coder/hnsw"

	"github.com/hupe1980/segbuild"
	"github.com/hupe1980/segbuild/doclog"
	"github.com/hupe1980/segbuild/model"
)

// CurrentVersion is the layout version new segments are built under.
// Snapshots record the version they were built with; a bump forces a
// full rebuild of every index on its next cycle.
const CurrentVersion = 2

// documentIDOverheadBytes approximates the per-vector cost of the id
// tracker entry next to the raw float32 payload.
const documentIDOverheadBytes = 24

// Schema is the versioned build strategy derived from a developer
// config. Two schemas with the same version produce interchangeable
// segment layouts.
type Schema struct {
	cfg     DeveloperConfig
	version int
}

// NewSchema derives the current schema from a developer config.
func NewSchema(cfg DeveloperConfig) Schema {
	return Schema{cfg: cfg, version: CurrentVersion}
}

// Version returns the schema's layout version.
func (s Schema) Version() int { return s.version }

// Dimension returns the configured vector dimension.
func (s Schema) Dimension() int { return s.cfg.Dimension }

// EstimateVectorSize approximates the on-disk footprint of one vector.
func (s Schema) EstimateVectorSize() uint64 {
	return uint64(4*s.cfg.Dimension) + documentIDOverheadBytes
}

// buildDiskIndex drains the merged change stream and writes a new
// segment's files under dir. Revisions within the window supersede each
// other: only the latest value per document survives, and a document
// inserted then deleted in the same window never reaches disk. Returns
// nil when no live vectors remain, e.g. a pure-delete window.
func (s Schema) buildDiskIndex(ctx context.Context, dir string, docs doclog.Stream, args segbuild.BuildArgs) (*DiskSegment, error) {
	vectors := make(map[model.DocumentID][]float32)
	var order []model.DocumentID

	for {
		rev, err := docs.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		if rev.IsDelete() {
			delete(vectors, rev.ID)
			continue
		}
		if len(rev.Value.Vector) != s.cfg.Dimension {
			return nil, fmt.Errorf("document %s has dimension %d, index expects %d",
				rev.ID, len(rev.Value.Vector), s.cfg.Dimension)
		}
		if _, ok := vectors[rev.ID]; !ok {
			order = append(order, rev.ID)
		}
		vectors[rev.ID] = rev.Value.Vector
	}

	// Deduplicate in first-insert order, dropping ids whose last
	// revision in the window was a delete.
	ids := make([]model.DocumentID, 0, len(vectors))
	seen := make(map[model.DocumentID]struct{}, len(vectors))
	for _, id := range order {
		if _, ok := vectors[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	if len(ids) == 0 {
		return nil, nil
	}

	dataPath := filepath.Join(dir, "vectors.flat")
	if err := s.writeFlat(dataPath, ids, vectors); err != nil {
		return nil, err
	}

	seg := &DiskSegment{
		DataPath: dataPath,
		IDs:      ids,
	}

	// Small segments stay flat: a linear scan over a few thousand
	// vectors is exact and cheaper than graph construction.
	estimated := uint64(len(ids)) * s.EstimateVectorSize()
	if args.FullScanThresholdBytes > 0 && estimated >= args.FullScanThresholdBytes {
		graphPath := filepath.Join(dir, "graph.hnsw")
		if err := s.writeGraph(graphPath, ids, vectors); err != nil {
			return nil, err
		}
		seg.GraphPath = graphPath
		seg.Indexed = true
	}

	return seg, nil
}

func (s Schema) writeFlat(path string, ids []model.DocumentID, vectors map[model.DocumentID][]float32) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	bw := bufio.NewWriter(f)
	fw, err := NewFlatWriter(bw, s.cfg.Dimension, uint64(len(ids)))
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := fw.Add(id, vectors[id]); err != nil {
			return err
		}
	}
	if err := fw.Close(); err != nil {
		return err
	}
	return bw.Flush()
}

func (s Schema) writeGraph(path string, ids []model.DocumentID, vectors map[model.DocumentID][]float32) (err error) {
	g := hnsw.NewGraph[string]()
	g.Distance = s.cfg.distanceFunc()

	nodes := make([]hnsw.Node[string], 0, len(ids))
	for _, id := range ids {
		nodes = append(nodes, hnsw.MakeNode(string(id), vectors[id]))
	}
	g.Add(nodes...)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	bw := bufio.NewWriter(f)
	if err := g.Export(bw); err != nil {
		return fmt.Errorf("export graph: %w", err)
	}
	return bw.Flush()
}

// DiskSegment is a freshly built segment before upload: its files under
// the cycle's scratch directory plus the ordinal-ordered document ids.
type DiskSegment struct {
	DataPath string

	// GraphPath is empty for flat segments.
	GraphPath string

	// IDs lists the contained documents in ordinal order.
	IDs []model.DocumentID

	// Indexed mirrors whether GraphPath is populated.
	Indexed bool
}

// NumVectors returns the number of vectors in the segment.
func (d *DiskSegment) NumVectors() uint64 { return uint64(len(d.IDs)) }
