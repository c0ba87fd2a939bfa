package afs2

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hatsuho/criutf/errs"
)

func TestBuildEmptyArchive(t *testing.T) {
	built, err := Build(&Archive{})
	require.NoError(t, err)
	require.Equal(t, "AFS2", string(built[:4]))

	parsed, err := Parse(built)
	require.NoError(t, err)
	require.Len(t, parsed.Entries, 0)
}

func TestBuildRejectsUnsupportedOffsetSize(t *testing.T) {
	_, err := Build(&Archive{}, WithOffsetSize(3))
	require.Error(t, err)
}

func TestBuildRejectsUnsupportedAudioIDSize(t *testing.T) {
	_, err := Build(&Archive{}, WithAudioIDSize(5))
	require.Error(t, err)
}

func TestBuildRejectsZeroAlignment(t *testing.T) {
	_, err := Build(&Archive{}, WithArchiveAlignment(0))
	require.Error(t, err)
	kind, ok := errs.Of(err)
	require.True(t, ok)
	require.Equal(t, errs.ArchiveTooLarge, kind)
}

func TestBuildRejectsEntriesCountExceedingAudioIDWidthCapacity(t *testing.T) {
	entries := make([]Entry, 1<<16+1) // one more than a 2-byte identifier can address
	_, err := Build(&Archive{Entries: entries}, WithAudioIDSize(2))
	require.Error(t, err)
	kind, ok := errs.Of(err)
	require.True(t, ok)
	require.Equal(t, errs.ArchiveTooLarge, kind)
}

func TestBuildAllowsEntriesCountAtAudioIDWidthCapacity(t *testing.T) {
	entries := make([]Entry, 1<<16) // exactly as many as a 2-byte identifier can address (ids 0..65535)
	_, err := Build(&Archive{Entries: entries}, WithAudioIDSize(2))
	require.NoError(t, err)
}

func TestBuildAssignsSequentialAudioIDsIgnoringInputIDs(t *testing.T) {
	archive := &Archive{
		Entries: []Entry{
			{AudioID: 99, Data: []byte("HCA\x00one")},
			{AudioID: 1, Data: []byte("HCA\x00two")},
		},
	}
	built, err := Build(archive)
	require.NoError(t, err)

	parsed, err := Parse(built)
	require.NoError(t, err)
	require.Equal(t, uint32(0), parsed.Entries[0].AudioID)
	require.Equal(t, uint32(1), parsed.Entries[1].AudioID)
}
