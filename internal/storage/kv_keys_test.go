// ABOUTME: Tests for KV cascade-delete key selection
// ABOUTME: Runs without a KV database by feeding keys and a deleter directly

package storage

import (
	"errors"
	"testing"
)

func TestInteractionKeys(t *testing.T) {
	keys := [][]byte{
		[]byte("request:abc"),
		[]byte("prayer:abc:1"),
		[]byte("encouragement:abc:2"),
		[]byte("prayer:abcd:3"),
		[]byte("prayer:xyz:4"),
	}
	got := interactionKeys(keys, "abc")
	if len(got) != 2 || string(got[0]) != "prayer:abc:1" || string(got[1]) != "encouragement:abc:2" {
		t.Errorf("unexpected keys %q", got)
	}
}

func TestDeleteKeys_ReturnsFirstFailure(t *testing.T) {
	var deleted []string
	del := func(key []byte) error {
		if string(key) == "prayer:abc:2" {
			return errBoomStorage
		}
		deleted = append(deleted, string(key))
		return nil
	}
	keys := [][]byte{[]byte("prayer:abc:1"), []byte("prayer:abc:2"), []byte("prayer:abc:3")}

	err := deleteKeys(keys, del)
	if !errors.Is(err, errBoomStorage) {
		t.Fatalf("expected delete failure to be returned, got %v", err)
	}
	if len(deleted) != 1 {
		t.Errorf("expected deletion to stop at the failure, deleted %v", deleted)
	}
	if err := deleteKeys(keys[:1], func([]byte) error { return nil }); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

var errBoomStorage = errors.New("disk full")
