package netio

import (
	"strings"
	"testing"
)

func TestLineReaderSplitsCRLF(t *testing.T) {
	lr := NewLineReader(strings.NewReader("PING :1\r\nNOTICE * :hi\r\n"))
	l1, err := lr.ReadLine()
	if err != nil || string(l1) != "PING :1" {
		t.Fatalf("line 1 = %q, err %v", l1, err)
	}
	l2, err := lr.ReadLine()
	if err != nil || string(l2) != "NOTICE * :hi" {
		t.Fatalf("line 2 = %q, err %v", l2, err)
	}
}

func TestLineReaderTooLong(t *testing.T) {
	lr := NewLineReader(strings.NewReader(strings.Repeat("a", MaxLineLength+1) + "\r\n"))
	_, err := lr.ReadLine()
	if err == nil {
		t.Fatal("expected an error for an oversized line")
	}
}
