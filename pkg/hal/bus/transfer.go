package bus

// DefaultAttempts is the default completion poll budget of a Transfer.
const DefaultAttempts = 100

// Transfer performs complete transfers on a Master: issue, then poll the
// completion status at 1ms spacing. Issue errors and completion polls share
// one attempt budget, and an exhausted budget yields zero bytes.
type Transfer struct {
	Master   Master
	Delay    Delayer
	Attempts int
}

// NewTransfer creates a Transfer with DefaultAttempts.
func NewTransfer(m Master, d Delayer) *Transfer {
	return &Transfer{Master: m, Delay: d, Attempts: DefaultAttempts}
}

// Read reads len(buf) bytes from addr and returns the bytes received.
func (t *Transfer) Read(addr uint16, buf []byte) int {
	if len(buf) == 0 {
		return 0
	}
	if t.run(StatusReadComplete, func() error { return t.Master.StartRead(addr, buf) }) {
		return t.Master.ReadCount()
	}
	return 0
}

// Write writes buf to addr and returns the bytes written.
func (t *Transfer) Write(addr uint16, buf []byte) int {
	if len(buf) == 0 {
		return 0
	}
	if t.run(StatusWriteComplete, func() error { return t.Master.StartWrite(addr, buf) }) {
		return len(buf)
	}
	return 0
}

func (t *Transfer) run(done Status, issue func() error) bool {
	budget := t.Attempts
	if budget <= 0 {
		budget = DefaultAttempts
	}
	for attempts := 0; attempts < budget; {
		if err := issue(); err != nil {
			attempts++
			t.delay()
			continue
		}
		status := t.Master.Status()
		for status&(done|StatusError) == 0 {
			if attempts >= budget {
				return false
			}
			t.delay()
			attempts++
			status = t.Master.Status()
		}
		if status&StatusError == 0 {
			return true
		}
		attempts++
	}
	return false
}

func (t *Transfer) delay() {
	if t.Delay != nil {
		t.Delay.DelayMs(1)
	}
}
