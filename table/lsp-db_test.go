/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package table_test

import (
	"math"
	"testing"
	"time"

	"github.com/pcepsim/pcepd/pcep"
	"github.com/pcepsim/pcepd/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionWrap(t *testing.T) {
	assert.Equal(t, uint64(2), table.NextVersion(1))
	assert.Equal(t, uint64(1), table.NextVersion(0))
	assert.Equal(t, uint64(1), table.NextVersion(math.MaxUint64-1))
	assert.Equal(t, uint64(1), table.NextVersion(math.MaxUint64))

	db := table.NewLSPDB("test", math.MaxUint64-2)
	assert.Equal(t, uint64(math.MaxUint64-1), db.Bump())
	assert.Equal(t, uint64(1), db.Bump())
}

func TestInvalidateKeepsLSPs(t *testing.T) {
	db := table.NewLSPDB("test", 4)
	db.Allocate("lsp-a")
	db.Invalidate()
	assert.Zero(t, db.Version())
	assert.Equal(t, 1, db.Len())
	db.Adopt(9)
	assert.Equal(t, uint64(9), db.Version())
}

func TestAdoptRegression(t *testing.T) {
	db := table.NewLSPDB("test", 0)
	db.Adopt(10)
	assert.Equal(t, uint64(10), db.Version())
	db.Adopt(4)
	assert.Equal(t, uint64(4), db.Version())
	db.Adopt(0)
	assert.Equal(t, uint64(4), db.Version())
}

func TestAllocateAndIndex(t *testing.T) {
	db := table.NewLSPDB("test", 1)
	a := db.Allocate("lsp-a")
	b := db.Allocate("lsp-b")
	assert.Equal(t, uint32(1), a.PLSPID)
	assert.Equal(t, uint32(2), b.PLSPID)
	assert.Same(t, b, db.ByName("lsp-b"))
	assert.Nil(t, db.ByName("lsp-c"))

	learned := db.Learn(7, "lsp-c")
	assert.Same(t, learned, db.Get(7))
	assert.Same(t, learned, db.Learn(7, ""))
	db.Learn(7, "lsp-renamed")
	assert.Nil(t, db.ByName("lsp-c"))
	assert.Same(t, learned, db.ByName("lsp-renamed"))

	all := db.All()
	require.Len(t, all, 3)
	assert.Equal(t, []uint32{1, 2, 7}, []uint32{all[0].PLSPID, all[1].PLSPID, all[2].PLSPID})

	assert.True(t, db.Remove(1))
	assert.False(t, db.Remove(1))
	assert.Nil(t, db.ByName("lsp-a"))
	assert.Equal(t, 2, db.Len())
}

func TestHistory(t *testing.T) {
	db := table.NewLSPDB("test", 5)
	l := db.Allocate("lsp")
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	report := pcep.NewMessage(pcep.MsgPCRpt)
	update := pcep.NewMessage(pcep.MsgPCUpd)

	db.Record(l, table.HistoryReport, report, at)
	db.Bump()
	db.Record(l, table.HistoryUpdate, update, at.Add(time.Second))

	assert.Same(t, report, l.LastReport)
	assert.Same(t, update, l.LastUpdate)
	require.Len(t, l.History, 2)
	assert.Equal(t, uint64(5), l.History[0].Version)
	assert.Equal(t, uint64(6), l.History[1].Version)
	assert.Equal(t, "Update", l.History[1].Kind.String())
}
