package redisstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

// creates new client connected to miniredis for testing
func newMini(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)

	rc, err := New(ctx, mr.Addr())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = rc.Close() })
	return rc, mr
}

func TestSetGetDel_HappyPath(t *testing.T) {
	rc, _ := newMini(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := rc.Set(ctx, "k1", []byte("v1"), 5*time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok, err := rc.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || string(got) != "v1" {
		t.Fatalf("Get=%q,%v want v1,true", got, ok)
	}

	if err := rc.Del(ctx, "k1"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	_, ok, err = rc.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get after Del: %v", err)
	}
	if ok {
		t.Fatalf("key should be gone after Del")
	}
}

func TestGet_MissingKeyIsNotAnError(t *testing.T) {
	rc, _ := newMini(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	b, ok, err := rc.Get(ctx, "nope")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok || b != nil {
		t.Fatalf("Get miss=%q,%v want nil,false", b, ok)
	}
}

func TestSet_TTLExpires(t *testing.T) {
	rc, mr := newMini(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := rc.Set(ctx, "short", []byte("v"), 10*time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	mr.FastForward(11 * time.Second)

	_, ok, err := rc.Get(ctx, "short")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatalf("key should have expired")
	}
}

func TestDelByPrefix_RemovesOnlyMatching(t *testing.T) {
	rc, _ := newMini(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for i := 0; i < 10; i++ {
		key := fmt.Sprintf("searchsync:searchElementList:q=%d", i)
		if err := rc.Set(ctx, key, []byte("x"), time.Minute); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	if err := rc.Set(ctx, "searchsync:getEventsList:q=1", []byte("y"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	n, err := rc.DelByPrefix(ctx, "searchsync:searchElementList:")
	if err != nil {
		t.Fatalf("DelByPrefix: %v", err)
	}
	if n != 10 {
		t.Fatalf("deleted=%d want 10", n)
	}

	_, ok, err := rc.Get(ctx, "searchsync:getEventsList:q=1")
	if err != nil || !ok {
		t.Fatalf("unrelated key must survive (ok=%v err=%v)", ok, err)
	}
}
