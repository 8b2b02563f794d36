package cache

import (
	"testing"
	"time"
)

func TestCache_SetGet(t *testing.T) {
	c := New(time.Minute)
	defer c.Stop()

	c.Set("employees:42", "Maria")

	v, ok := c.Get("employees:42")
	if !ok {
		t.Fatal("Expected cache hit")
	}
	if v != "Maria" {
		t.Errorf("Expected Maria, got %v", v)
	}
}

func TestCache_Miss(t *testing.T) {
	c := New(time.Minute)
	defer c.Stop()

	if _, ok := c.Get("absent"); ok {
		t.Error("Expected miss for absent key")
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	c := New(time.Minute)
	defer c.Stop()

	c.SetWithTTL("cameras:list", []string{"cam-1"}, 10*time.Millisecond)
	time.Sleep(25 * time.Millisecond)

	if _, ok := c.Get("cameras:list"); ok {
		t.Error("Expected expired entry to read as miss")
	}
}

func TestCache_Delete(t *testing.T) {
	c := New(time.Minute)
	defer c.Stop()

	c.Set("users:1", "a")
	c.Delete("users:1")

	if _, ok := c.Get("users:1"); ok {
		t.Error("Expected miss after delete")
	}
}

func TestCache_DeletePrefix(t *testing.T) {
	c := New(time.Minute)
	defer c.Stop()

	c.Set("employees:1", "a")
	c.Set("employees:2", "b")
	c.Set("employees:list", "c")
	c.Set("cameras:1", "d")

	c.DeletePrefix("employees:")

	if _, ok := c.Get("employees:1"); ok {
		t.Error("Expected employees:1 invalidated")
	}
	if _, ok := c.Get("employees:list"); ok {
		t.Error("Expected employees:list invalidated")
	}
	if _, ok := c.Get("cameras:1"); !ok {
		t.Error("Expected cameras:1 to survive")
	}
}

func TestCache_StopIsIdempotent(t *testing.T) {
	c := New(time.Minute)
	c.Stop()
	c.Stop() // must not panic
}
