package scrape

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeepJobs_DropsSentinelRecords(t *testing.T) {
	t.Parallel()

	jobs := []JobRecord{
		{Title: "a", Description: "kept one"},
		{Title: "b", Description: DescriptionUnavailable},
		{Title: "c", Description: "kept two"},
		{Title: "d", Description: DescriptionUnavailable},
	}

	kept := KeepJobs(jobs)
	require.Len(t, kept, 2)
	require.Equal(t, "a", kept[0].Title)
	require.Equal(t, "c", kept[1].Title)
	for _, job := range kept {
		require.NotEqual(t, DescriptionUnavailable, job.Description)
	}
}

func TestKeepJobs_EmptyAndAllSentinel(t *testing.T) {
	t.Parallel()

	require.Empty(t, KeepJobs(nil))
	require.Empty(t, KeepJobs([]JobRecord{
		{Description: DescriptionUnavailable},
		{Description: DescriptionUnavailable},
	}))
}

// An empty description is not the sentinel; the filter inspects nothing but
// the exact sentinel value.
func TestKeepJobs_KeepsEmptyStringDescriptions(t *testing.T) {
	t.Parallel()

	kept := KeepJobs([]JobRecord{{Description: ""}})
	require.Len(t, kept, 1)
}
