package expire

import "testing"

// a DYING mail enqueued after any number of
// non-DYING mails is dequeued before them.
func TestMailDyingPreemptsToHead(t *testing.T) {
	m := NewMailbox()

	a := NewObjectCore("a", nil, nil)
	b := NewObjectCore("b", nil, nil)
	c := NewObjectCore("c", nil, nil)
	c.setFlags(DYING)

	m.Mail(a)
	m.Mail(b)
	m.Mail(c)

	if got := m.drain(); got != c {
		t.Fatalf("expected DYING mail c to be dequeued first, got %v", got)
	}
	if got := m.drain(); got != a {
		t.Fatalf("expected FIFO order to resume with a, got %v", got)
	}
	if got := m.drain(); got != b {
		t.Fatalf("expected b last, got %v", got)
	}
	if got := m.drain(); got != nil {
		t.Fatalf("expected empty mailbox, got %v", got)
	}
}

func TestMailFIFOOrderAmongNonDying(t *testing.T) {
	m := NewMailbox()
	ocs := make([]*ObjectCore, 5)
	for i := range ocs {
		ocs[i] = NewObjectCore("k", nil, nil)
		m.Mail(ocs[i])
	}
	for i := range ocs {
		if got := m.drain(); got != ocs[i] {
			t.Fatalf("FIFO order violated at position %d", i)
		}
	}
}

func TestMailMultipleDyingStayOrderedAtHead(t *testing.T) {
	m := NewMailbox()
	a := NewObjectCore("a", nil, nil)
	m.Mail(a)

	d1 := NewObjectCore("d1", nil, nil)
	d1.setFlags(DYING)
	d2 := NewObjectCore("d2", nil, nil)
	d2.setFlags(DYING)

	m.Mail(d1)
	m.Mail(d2)

	// Each new DYING mail head-inserts, so the most recently mailed DYING
	// object is dequeued first.
	if got := m.drain(); got != d2 {
		t.Fatalf("expected d2 first, got %v", got)
	}
	if got := m.drain(); got != d1 {
		t.Fatalf("expected d1 second, got %v", got)
	}
	if got := m.drain(); got != a {
		t.Fatalf("expected a last, got %v", got)
	}
}

func TestNotifySignalsOnMail(t *testing.T) {
	m := NewMailbox()
	oc := NewObjectCore("a", nil, nil)
	m.Mail(oc)

	select {
	case <-m.notify:
	default:
		t.Fatalf("expected a pending notification after Mail")
	}
}
