package ledger

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	l := New(3)
	if l.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", l.Len())
	}
	for i := 0; i < 3; i++ {
		s, err := l.Status(i)
		if err != nil || s != Unverified {
			t.Errorf("Status(%d) = %v, %v", i, s, err)
		}
	}
	if l.AllVerified() {
		t.Error("fresh ledger should not be all verified")
	}
	if New(-2).Len() != 0 {
		t.Error("negative size should clamp to zero")
	}
}

func TestAllVerified_RequiresEveryIndex(t *testing.T) {
	const n = 5
	l := New(n)
	for i := 0; i < n; i++ {
		if l.AllVerified() {
			t.Fatalf("AllVerified() true after verifying %d of %d", i, n)
		}
		if err := l.Verify(i); err != nil {
			t.Fatalf("Verify(%d) error = %v", i, err)
		}
	}
	if !l.AllVerified() {
		t.Error("AllVerified() should be true once every index is verified")
	}
}

func TestAllVerified_Empty(t *testing.T) {
	if New(0).AllVerified() {
		t.Error("an empty ledger must not be bindable")
	}
}

func TestFirstUnverified_Scenario(t *testing.T) {
	l := New(3)
	_ = l.Verify(0)
	_ = l.Verify(2)

	if l.AllVerified() {
		t.Error("AllVerified() should be false")
	}
	i, ok := l.FirstUnverified()
	if !ok || i != 1 {
		t.Errorf("FirstUnverified() = %d, %v, want 1, true", i, ok)
	}
	if l.VerifiedCount() != 2 {
		t.Errorf("VerifiedCount() = %d, want 2", l.VerifiedCount())
	}
}

func TestVerify_Idempotent(t *testing.T) {
	l := New(1)
	for range 3 {
		if err := l.Verify(0); err != nil {
			t.Fatal(err)
		}
	}
	if !l.AllVerified() {
		t.Error("repeated verify should leave entry verified")
	}
	if err := l.Unverify(0); err != nil {
		t.Fatal(err)
	}
	if err := l.Unverify(0); err != nil {
		t.Fatal(err)
	}
	if s, _ := l.Status(0); s != Unverified {
		t.Errorf("Status(0) = %v after unverify", s)
	}
}

func TestIndexOutOfRange(t *testing.T) {
	l := New(2)
	for _, idx := range []int{-1, 2, 100} {
		for name, op := range map[string]func(int) error{
			"verify":   l.Verify,
			"unverify": l.Unverify,
			"status": func(i int) error {
				_, err := l.Status(i)
				return err
			},
		} {
			err := op(idx)
			if !errors.Is(err, ErrIndexOutOfRange) {
				t.Errorf("%s(%d) error = %v, want ErrIndexOutOfRange", name, idx, err)
			}
			var ie *IndexError
			if !errors.As(err, &ie) || ie.Index != idx || ie.Len != 2 {
				t.Errorf("%s(%d) IndexError = %+v", name, idx, ie)
			}
		}
	}
	if l.VerifiedCount() != 0 {
		t.Error("failed operations must not change state")
	}
}

func TestVerifyAllReset(t *testing.T) {
	l := New(4)
	l.VerifyAll()
	if !l.AllVerified() {
		t.Error("VerifyAll() should verify everything")
	}
	l.Reset()
	if i, ok := l.FirstUnverified(); !ok || i != 0 {
		t.Errorf("after Reset FirstUnverified() = %d, %v", i, ok)
	}
}

func TestStatus_String(t *testing.T) {
	if Verified.String() != "verified" || Unverified.String() != "unverified" {
		t.Errorf("String() = %s / %s", Verified, Unverified)
	}
}
