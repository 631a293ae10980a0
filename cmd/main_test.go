package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReviewRequiresExactlyOneTarget(t *testing.T) {
	for _, args := range [][]string{
		{"review"},
		{"review", "--due", "--user", "5b0c3a52-7d1e-4b8e-9a55-0a8d2f4c1e11"},
	} {
		cmd := newRootCmd()
		cmd.SetArgs(args)
		err := cmd.Execute()
		require.ErrorContains(t, err, "exactly one of --user or --due")
	}
}

func TestReadMetrics(t *testing.T) {
	m, err := readMetrics("")
	require.NoError(t, err)
	require.Nil(t, m)

	path := filepath.Join(t.TempDir(), "metrics.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"therapy_referral_rejections":2,"shadow_work_avoidance_count":4}`), 0o600))
	m, err = readMetrics(path)
	require.NoError(t, err)
	require.Equal(t, 2, m.TherapyReferralRejections)
	require.Equal(t, 4, m.ShadowWorkAvoidanceCount)

	require.NoError(t, os.WriteFile(path, []byte(`{`), 0o600))
	_, err = readMetrics(path)
	require.ErrorContains(t, err, "decode metrics")
}

func TestReviewsResolveValidatesID(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"reviews", "resolve", "not-a-uuid"})
	require.ErrorContains(t, cmd.Execute(), "invalid review id")

	cmd = newRootCmd()
	cmd.SetArgs([]string{"reviews", "resolve"})
	require.Error(t, cmd.Execute())
}
