package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tradesim/types"
)

func TestExecStateTransitions(t *testing.T) {
	var st execState
	now := time.Now()
	price := decimal.NewFromInt(100)

	if st.current() != StateFlat {
		t.Fatalf("empty state = %v, want StateFlat", st.current())
	}

	if !st.scheduleEntry(types.SideBuy, price, ReasonSignal, 0, now) {
		t.Fatal("first scheduleEntry rejected")
	}
	if st.current() != StatePendingEntry {
		t.Fatalf("state = %v, want StatePendingEntry", st.current())
	}
	if st.scheduleEntry(types.SideSell, price, ReasonSignal, 0, now) {
		t.Error("second scheduleEntry accepted while one is pending")
	}
	if st.pendingEntry.side != types.SideBuy {
		t.Errorf("pending entry side overwritten to %s", st.pendingEntry.side)
	}

	st.pendingEntry = nil
	st.pos = &position{side: types.SideBuy, entryPrice: price}
	if st.current() != StateOpen {
		t.Fatalf("state = %v, want StateOpen", st.current())
	}

	if !st.scheduleExit(price, ReasonStopLoss, 1, now) {
		t.Fatal("first scheduleExit rejected")
	}
	if st.current() != StatePendingExit {
		t.Fatalf("state = %v, want StatePendingExit", st.current())
	}
	if st.scheduleExit(price, ReasonTakeProfit, 1, now) {
		t.Error("second scheduleExit accepted while one is pending")
	}
	if st.pendingExit.reason != ReasonStopLoss {
		t.Errorf("pending exit reason overwritten to %s", st.pendingExit.reason)
	}
}
