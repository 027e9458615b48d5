package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/splitledger/internal/integrity"
	"github.com/fkhayef/splitledger/pkg/logger"
)

type chainFunc func(ctx context.Context) ([]integrity.Link, error)

func (f chainFunc) Chain(ctx context.Context) ([]integrity.Link, error) { return f(ctx) }

func chainOf(t *testing.T, payloads ...map[string]int64) []integrity.Link {
	t.Helper()
	prev := integrity.GenesisHash
	links := make([]integrity.Link, len(payloads))
	for i, p := range payloads {
		h, err := integrity.ChainHash(p, prev)
		require.NoError(t, err)
		links[i] = integrity.Link{ID: int64(i + 1), Payload: p, PrevHash: prev, Hash: h}
		prev = h
	}
	return links
}

func TestVerify(t *testing.T) {
	hook := test.NewLocal(logger.Logger)
	t.Cleanup(hook.Reset)

	good := chainOf(t, map[string]int64{"amount": 100}, map[string]int64{"amount": 250})
	tampered := chainOf(t, map[string]int64{"amount": 100}, map[string]int64{"amount": 250})
	tampered[1].Payload = map[string]int64{"amount": 2500}

	results := Verify(context.Background(),
		Source{Name: "expenses", Chain: chainFunc(func(context.Context) ([]integrity.Link, error) { return good, nil })},
		Source{Name: "payments", Chain: chainFunc(func(context.Context) ([]integrity.Link, error) { return tampered, nil })},
		Source{Name: "offline", Chain: chainFunc(func(context.Context) ([]integrity.Link, error) { return nil, errors.New("connection refused") })},
	)
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Err)
	assert.Equal(t, 2, results[0].Records)

	assert.True(t, results[1].Broken())
	var brk *integrity.BreakError
	require.ErrorAs(t, results[1].Err, &brk)
	assert.Equal(t, int64(2), brk.ID)

	assert.Error(t, results[2].Err)
	assert.False(t, results[2].Broken())

	levels := make([]logrus.Level, 0, len(hook.AllEntries()))
	for _, e := range hook.AllEntries() {
		levels = append(levels, e.Level)
	}
	assert.Equal(t, []logrus.Level{logrus.InfoLevel, logrus.ErrorLevel, logrus.WarnLevel}, levels)
	assert.Equal(t, "payments", hook.AllEntries()[1].Data["chain"])
}

func TestStart(t *testing.T) {
	c, err := Start("", time.Second)
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = Start("every tuesday", time.Second)
	assert.Error(t, err)

	c, err = Start("0 */6 * * *", time.Second)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Len(t, c.Entries(), 1)
	<-c.Stop().Done()
}
