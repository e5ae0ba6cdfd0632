package vector

import (
	"encoding/json"
	"fmt"

	"github.com/hupe1980/segbuild"
	"github.com/hupe1980/segbuild/model"
	"github.com/hupe1980/segbuild/segment"
)

// Persisted form of a vector index's config payload, stored inside the
// metadata record. The developer config and the on-disk state live side
// by side so an index definition survives rebuilds untouched.

const (
	stateBackfilling   = "backfilling"
	stateBackfilled    = "backfilled"
	stateSnapshottedAt = "snapshotted_at"

	dataMultiSegment = "multi_segment"
	dataUnknown      = "unknown"
)

type persistedConfig struct {
	DeveloperConfig DeveloperConfig `json:"developer_config"`
	OnDiskState     persistedState  `json:"on_disk_state"`
}

type persistedState struct {
	State string `json:"state"`

	// backfilling
	Segments           []segment.Fragmented `json:"segments,omitempty"`
	Cursor             model.Timestamp      `json:"cursor,omitempty"`
	BackfillSnapshotTS model.Timestamp      `json:"backfill_snapshot_ts,omitempty"`

	// backfilled / snapshotted_at
	TS   model.Timestamp        `json:"ts,omitempty"`
	Data *persistedSnapshotData `json:"data,omitempty"`
}

type persistedSnapshotData struct {
	Kind     string               `json:"kind"`
	Segments []segment.Fragmented `json:"segments,omitempty"`
	Version  int                  `json:"version,omitempty"`
	Raw      json.RawMessage      `json:"raw,omitempty"`
}

func stateFromPersisted(ps persistedState) (segbuild.OnDiskState[segment.Fragmented], error) {
	var zero segbuild.OnDiskState[segment.Fragmented]

	switch ps.State {
	case stateBackfilling:
		return segbuild.Backfilling(segbuild.BackfillState[segment.Fragmented]{
			Segments:           ps.Segments,
			Cursor:             ps.Cursor,
			BackfillSnapshotTS: ps.BackfillSnapshotTS,
		}), nil
	case stateBackfilled, stateSnapshottedAt:
		data, err := dataFromPersisted(ps.Data)
		if err != nil {
			return zero, err
		}
		snap := segbuild.Snapshot[segment.Fragmented]{TS: ps.TS, Data: data}
		if ps.State == stateBackfilled {
			return segbuild.Backfilled(snap), nil
		}
		return segbuild.SnapshottedAt(snap), nil
	default:
		return zero, fmt.Errorf("unrecognized index state %q", ps.State)
	}
}

// dataFromPersisted is deliberately lenient: a payload kind this version
// does not understand, including the single-segment form some other
// index kinds use, round-trips as Unknown. Unknown data never matches
// the current schema version, so the next cycle rebuilds from scratch
// instead of failing.
func dataFromPersisted(pd *persistedSnapshotData) (segbuild.SnapshotData[segment.Fragmented], error) {
	if pd == nil {
		return segbuild.UnknownSnapshotData[segment.Fragmented](nil), nil
	}
	switch pd.Kind {
	case dataMultiSegment:
		return segbuild.MultiSegmentSnapshotData(pd.Segments, pd.Version), nil
	default:
		raw, err := json.Marshal(pd)
		if err != nil {
			return segbuild.SnapshotData[segment.Fragmented]{}, err
		}
		return segbuild.UnknownSnapshotData[segment.Fragmented](raw), nil
	}
}

func stateToPersisted(st segbuild.OnDiskState[segment.Fragmented]) (persistedState, error) {
	switch st.Kind() {
	case segbuild.StateBackfilling:
		bs, _ := st.Backfill()
		return persistedState{
			State:              stateBackfilling,
			Segments:           bs.Segments,
			Cursor:             bs.Cursor,
			BackfillSnapshotTS: bs.BackfillSnapshotTS,
		}, nil
	case segbuild.StateBackfilled, segbuild.StateSnapshotted:
		snap, _ := st.Snapshot()
		data, err := dataToPersisted(snap.Data)
		if err != nil {
			return persistedState{}, err
		}
		state := stateBackfilled
		if st.Kind() == segbuild.StateSnapshotted {
			state = stateSnapshottedAt
		}
		return persistedState{State: state, TS: snap.TS, Data: data}, nil
	default:
		return persistedState{}, fmt.Errorf("unrecognized state kind %d", st.Kind())
	}
}

func dataToPersisted(data segbuild.SnapshotData[segment.Fragmented]) (*persistedSnapshotData, error) {
	switch data.Kind() {
	case segbuild.SnapshotDataMultiSegment:
		return &persistedSnapshotData{
			Kind:     dataMultiSegment,
			Segments: data.Segments(),
			Version:  data.Version(),
		}, nil
	case segbuild.SnapshotDataUnknown:
		if raw := data.Raw(); len(raw) > 0 {
			var pd persistedSnapshotData
			if err := json.Unmarshal(raw, &pd); err == nil && pd.Kind != "" {
				return &pd, nil
			}
			return &persistedSnapshotData{Kind: dataUnknown, Raw: raw}, nil
		}
		return nil, nil
	case segbuild.SnapshotDataSingleSegment:
		// Vector indexes always fragment; a single-segment snapshot can
		// only mean a corrupted or mis-migrated record.
		return nil, &segbuild.ErrInvalidSnapshotData{
			Kind:   data.Kind(),
			Detail: "vector indexes do not use single-segment snapshots",
		}
	default:
		return nil, &segbuild.ErrInvalidSnapshotData{
			Kind:   data.Kind(),
			Detail: "unrecognized snapshot data kind",
		}
	}
}
