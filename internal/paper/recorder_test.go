package paper

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"titan-bot/internal/signal"
)

func TestJSONLRecorder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "fills.jsonl")

	recorder, err := NewJSONLRecorder(path)
	if err != nil {
		t.Fatalf("NewJSONLRecorder error: %v", err)
	}
	fill := Fill{OrderID: 1, Coin: "BTC", Side: signal.Sell, Size: d("0.001"), Price: d("60000")}
	recorder.Record(fill)
	if err := recorder.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	recorder.Record(fill)

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open recorded file: %v", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lines := 0
	var decoded Fill
	for scanner.Scan() {
		lines++
		if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
			t.Fatalf("json decode: %v", err)
		}
	}
	if lines != 1 {
		t.Fatalf("expected one line in recorder output, got %d", lines)
	}
	if decoded.Coin != fill.Coin || decoded.Side != fill.Side || !decoded.Price.Equal(fill.Price) {
		t.Fatalf("unexpected decoded fill %+v", decoded)
	}
}
