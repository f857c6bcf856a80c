package xflight

import (
	"context"
	"testing"
)

func FuzzDo(f *testing.F) {
	f.Add("key1")
	f.Add("")
	f.Add("key/with/slashes")
	f.Add("中文key")

	f.Fuzz(func(t *testing.T, key string) {
		g, err := New[string](WithShardCount(4))
		if err != nil {
			t.Fatal(err)
		}
		v, err := g.Do(key, func() (string, error) { return key, nil })
		if err != nil || v != key {
			t.Fatalf("Do(%q) = %q, %v", key, v, err)
		}
		r := <-g.DoChan(context.Background(), key, func(context.Context) (string, error) { return key, nil })
		if r.Err != nil || r.Val != key {
			t.Fatalf("DoChan(%q) = %q, %v", key, r.Val, r.Err)
		}
	})
}
