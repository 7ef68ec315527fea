package model

import "testing"

func TestOppositeKind(t *testing.T) {
	if OppositeKind(KindLost) != KindFound {
		t.Error("expected opposite of lost to be found")
	}
	if OppositeKind(KindFound) != KindLost {
		t.Error("expected opposite of found to be lost")
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range []string{StatusRegistered, StatusAuthInProgress, StatusAuthVerified, StatusReturnInProgress, StatusReturned} {
		if !ValidStatus(s) {
			t.Errorf("expected %q to be a valid status", s)
		}
	}
	if ValidStatus("Lost Forever") {
		t.Error("expected unknown status to be invalid")
	}
}

func TestCanTransition(t *testing.T) {
	allowed := [][2]string{
		{StatusRegistered, StatusAuthInProgress},
		{StatusAuthInProgress, StatusAuthVerified},
		{StatusAuthInProgress, StatusRegistered},
		{StatusAuthVerified, StatusReturnInProgress},
		{StatusReturnInProgress, StatusReturned},
	}
	for _, tr := range allowed {
		if !CanTransition(tr[0], tr[1]) {
			t.Errorf("expected %q -> %q to be legal", tr[0], tr[1])
		}
	}

	forbidden := [][2]string{
		{StatusRegistered, StatusAuthVerified},
		{StatusRegistered, StatusReturned},
		{StatusAuthVerified, StatusRegistered},
		{StatusAuthVerified, StatusAuthInProgress},
		{StatusReturned, StatusRegistered},
		{StatusReturned, StatusReturnInProgress},
	}
	for _, tr := range forbidden {
		if CanTransition(tr[0], tr[1]) {
			t.Errorf("expected %q -> %q to be illegal", tr[0], tr[1])
		}
	}
}

func TestStatusProtected(t *testing.T) {
	if StatusProtected(StatusRegistered) || StatusProtected(StatusAuthInProgress) {
		t.Error("expected pre-verification statuses to be unprotected")
	}
	for _, s := range []string{StatusAuthVerified, StatusReturnInProgress, StatusReturned} {
		if !StatusProtected(s) {
			t.Errorf("expected %q to be protected", s)
		}
	}
}
