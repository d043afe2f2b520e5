/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"testing"
	"time"
)

func TestSnapshotsCRUD(t *testing.T) {
	ix, err := OpenIndex(t.TempDir())
	if err != nil {
		t.Fatalf("OpenIndex error: %v", err)
	}
	defer ix.Close()
	ctx := context.Background()
	if blob, _, err := ix.LatestSnapshot(ctx, "매장"); err != nil || blob != nil {
		t.Fatalf("empty history: %q %v", blob, err)
	}
	base := time.Now()
	if err := ix.SaveSnapshot(ctx, "매장", []byte("hello"), base); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	blob, _, err := ix.LatestSnapshot(ctx, "매장")
	if err != nil || string(blob) != "hello" {
		t.Fatalf("LatestSnapshot got %q err %v", string(blob), err)
	}
	for i := 0; i < 5; i++ {
		b := []byte{byte('a' + i)}
		if err := ix.SaveSnapshot(ctx, "매장", b, base.Add(time.Duration(i+1)*time.Millisecond)); err != nil {
			t.Fatalf("SaveSnapshot %d: %v", i, err)
		}
	}
	_ = ix.SaveSnapshot(ctx, "other", []byte("x"), base)
	list, err := ix.ListSnapshots(ctx, "매장", 10)
	if err != nil || len(list) != 6 {
		t.Fatalf("ListSnapshots got %d err %v", len(list), err)
	}
	if string(list[0].Blob) != "e" {
		t.Fatalf("newest first expected, got %q", string(list[0].Blob))
	}
	n, err := ix.PruneOldSnapshots(ctx, "매장", 3)
	if err != nil || n != 3 {
		t.Fatalf("PruneOldSnapshots deleted %d err %v", n, err)
	}
	list, err = ix.ListSnapshots(ctx, "매장", 10)
	if err != nil || len(list) != 3 {
		t.Fatalf("ListSnapshots after prune got %d err %v", len(list), err)
	}
	if list, _ := ix.ListSnapshots(ctx, "other", 10); len(list) != 1 {
		t.Fatalf("pruning must not touch other scenes")
	}
}
