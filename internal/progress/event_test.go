package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEventValidate(t *testing.T) {
	t.Parallel()

	now := time.Now()
	cases := []struct {
		name    string
		evt     Event
		wantErr bool
	}{
		{name: "run start", evt: Event{RunID: "r1", TS: now, Stage: StageRunStart}},
		{name: "run done", evt: Event{RunID: "r1", TS: now, Stage: StageRunDone, Dur: time.Second}},
		{name: "domain done", evt: Event{RunID: "r1", TS: now, Stage: StageDomainDone, Domain: "kia.lk"}},
		{name: "keyword checked", evt: Event{RunID: "r1", TS: now, Stage: StageKeywordChecked, Domain: "kia.lk", Keyword: "car price"}},
		{name: "missing run id", evt: Event{TS: now, Stage: StageRunStart}, wantErr: true},
		{name: "missing timestamp", evt: Event{RunID: "r1", Stage: StageRunStart}, wantErr: true},
		{name: "domain event without domain", evt: Event{RunID: "r1", TS: now, Stage: StageDomainError}, wantErr: true},
		{name: "keyword event without keyword", evt: Event{RunID: "r1", TS: now, Stage: StageKeywordChecked, Domain: "kia.lk"}, wantErr: true},
		{name: "negative duration", evt: Event{RunID: "r1", TS: now, Stage: StageRunDone, Dur: -time.Second}, wantErr: true},
		{name: "unknown stage", evt: Event{RunID: "r1", TS: now, Stage: "NOPE"}, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.evt.Validate()
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}
