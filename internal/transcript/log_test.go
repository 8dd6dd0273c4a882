package transcript

import (
	"sync"
	"testing"
	"time"
)

func fixedClock() func() time.Time {
	base := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	var n int
	var mu sync.Mutex
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		n++
		return base.Add(time.Duration(n) * time.Millisecond)
	}
}

func TestAppendPreservesOrder(t *testing.T) {
	l := NewLog(fixedClock())

	l.Append(System, "Connected to /dev/ttyUSB0 at 115200 baud.")
	l.Append(Outbound, "AT")
	l.Append(Inbound, "OK\r\n")

	records := l.Records()
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}

	want := []struct {
		text string
		dir  Direction
	}{
		{"Connected to /dev/ttyUSB0 at 115200 baud.", System},
		{"AT", Outbound},
		{"OK\r\n", Inbound},
	}
	for i, w := range want {
		if records[i].Text != w.text || records[i].Direction != w.dir {
			t.Errorf("record %d = %+v, want %q/%v", i, records[i], w.text, w.dir)
		}
		if i > 0 && !records[i].Timestamp.After(records[i-1].Timestamp) {
			t.Errorf("record %d timestamp not after record %d", i, i-1)
		}
	}
}

func TestRecordsReturnsCopy(t *testing.T) {
	l := NewLog(nil)
	l.Append(Inbound, "original")

	records := l.Records()
	records[0].Text = "mutated"

	if got := l.Records()[0].Text; got != "original" {
		t.Errorf("log record mutated through copy: %q", got)
	}
}

func TestSince(t *testing.T) {
	l := NewLog(nil)
	for _, s := range []string{"a", "b", "c"} {
		l.Append(Inbound, s)
	}

	tests := []struct {
		index int
		want  []string
	}{
		{-1, []string{"a", "b", "c"}},
		{0, []string{"a", "b", "c"}},
		{2, []string{"c"}},
		{3, []string{}},
		{10, []string{}},
	}

	for _, tt := range tests {
		got := l.Since(tt.index)
		if len(got) != len(tt.want) {
			t.Errorf("Since(%d) returned %d records, want %d", tt.index, len(got), len(tt.want))
			continue
		}
		for i := range got {
			if got[i].Text != tt.want[i] {
				t.Errorf("Since(%d)[%d] = %q, want %q", tt.index, i, got[i].Text, tt.want[i])
			}
		}
	}
}

func TestSubscribeReceivesEvents(t *testing.T) {
	l := NewLog(nil)
	ch := l.Subscribe()

	l.Append(Inbound, "x")

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("Expected change event after append")
	}

	l.Notify()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("Expected change event after Notify")
	}
}

func TestSubscribeCoalesces(t *testing.T) {
	l := NewLog(nil)
	ch := l.Subscribe()

	for i := 0; i < 10; i++ {
		l.Append(Inbound, "burst")
	}

	<-ch
	select {
	case <-ch:
		t.Error("Expected events to coalesce into a single pending event")
	default:
	}
	if l.Len() != 10 {
		t.Errorf("Expected 10 records, got %d", l.Len())
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	l := NewLog(nil)
	ch := l.Subscribe()
	l.Unsubscribe(ch)

	if _, ok := <-ch; ok {
		t.Error("Expected channel to be closed after Unsubscribe")
	}

	// Appending after unsubscribe must not panic on a closed channel
	l.Append(Inbound, "after")
}

func TestCloseClosesSubscribers(t *testing.T) {
	l := NewLog(nil)
	a := l.Subscribe()
	b := l.Subscribe()

	l.Close()
	l.Close()

	for _, ch := range []<-chan struct{}{a, b} {
		if _, ok := <-ch; ok {
			t.Error("Expected subscriber channel closed")
		}
	}

	late := l.Subscribe()
	if _, ok := <-late; ok {
		t.Error("Expected subscription after Close to be closed")
	}
}

func TestConcurrentAppend(t *testing.T) {
	l := NewLog(nil)
	ch := l.Subscribe()
	done := make(chan struct{})
	go func() {
		for range ch {
		}
		close(done)
	}()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				l.Append(Inbound, "chunk")
			}
		}()
	}
	wg.Wait()
	l.Close()
	<-done

	if l.Len() != 800 {
		t.Errorf("Expected 800 records, got %d", l.Len())
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{"ascii", []byte("OK\r\n"), "OK\r\n"},
		{"utf8", []byte("temp 21°C"), "temp 21°C"},
		{"invalid", []byte{'a', 0xff, 'b'}, "a�b"},
		{"split rune", []byte{0xc2}, "�"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decode(tt.input); got != tt.want {
				t.Errorf("Decode(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDirection(t *testing.T) {
	for _, d := range []Direction{Inbound, Outbound, System} {
		if got := ParseDirection(d.String()); got != d {
			t.Errorf("ParseDirection(%q) = %v, want %v", d.String(), got, d)
		}
	}
	if !(Record{Direction: Outbound}).Sent() {
		t.Error("Outbound record should report Sent")
	}
	if (Record{Direction: System}).Sent() {
		t.Error("System record should not report Sent")
	}
}
