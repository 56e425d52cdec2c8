package bus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// scriptedMaster completes a transfer after a number of polls.
type scriptedMaster struct {
	issueErrs   []error
	pollsToDone int
	failStatus  int
	count       int

	issued int
	polls  int
	status Status
	done   Status
}

func (m *scriptedMaster) Start() error { return nil }
func (m *scriptedMaster) Stop() error  { return nil }

func (m *scriptedMaster) issue(done Status) error {
	m.issued++
	if len(m.issueErrs) > 0 {
		err := m.issueErrs[0]
		m.issueErrs = m.issueErrs[1:]
		if err != nil {
			return err
		}
	}
	m.polls, m.status, m.done = 0, 0, done
	return nil
}

func (m *scriptedMaster) StartRead(addr uint16, buf []byte) error {
	return m.issue(StatusReadComplete)
}

func (m *scriptedMaster) StartWrite(addr uint16, buf []byte) error {
	return m.issue(StatusWriteComplete)
}

func (m *scriptedMaster) Status() Status {
	if m.pollsToDone < 0 {
		return 0
	}
	if m.polls >= m.pollsToDone {
		if m.failStatus > 0 {
			m.failStatus--
			return StatusError
		}
		return m.done
	}
	m.polls++
	return m.status
}

func (m *scriptedMaster) ReadCount() int { return m.count }

type delayCounter struct {
	calls int
	total uint32
}

func (d *delayCounter) DelayMs(ms uint32) {
	d.calls++
	d.total += ms
}

func TestTransferRead(t *testing.T) {
	testCases := []struct {
		name        string
		master      scriptedMaster
		expectN     int
		expectDelay int
	}{
		{"immediate", scriptedMaster{count: 4}, 4, 0},
		{"after polls", scriptedMaster{pollsToDone: 3, count: 4}, 4, 3},
		{"never completes", scriptedMaster{pollsToDone: -1, count: 4}, 0, DefaultAttempts},
		{"issue error then ok", scriptedMaster{issueErrs: []error{ErrBusy, nil}, count: 2}, 2, 1},
		{"error status retried", scriptedMaster{failStatus: 2, count: 2}, 2, 0},
		{"issue always fails", scriptedMaster{issueErrs: repeatErr(ErrNack, DefaultAttempts+1)}, 0, DefaultAttempts},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := tc.master
			var d delayCounter
			tr := NewTransfer(&m, &d)
			n := tr.Read(0x4a, make([]byte, 4))
			require.Equal(t, tc.expectN, n)
			require.Equal(t, tc.expectDelay, d.calls)
			require.Equal(t, uint32(d.calls), d.total)
		})
	}
}

func TestTransferWrite(t *testing.T) {
	m := scriptedMaster{pollsToDone: 2}
	var d delayCounter
	tr := NewTransfer(&m, &d)
	require.Equal(t, 3, tr.Write(0x4a, []byte{1, 2, 3}))
	require.Equal(t, 2, d.calls)

	m = scriptedMaster{pollsToDone: -1}
	d = delayCounter{}
	tr.Attempts = 10
	require.Equal(t, 0, tr.Write(0x4a, []byte{1}))
	require.Equal(t, 10, d.calls)
}

func TestTransferEmptyBuffer(t *testing.T) {
	m := scriptedMaster{}
	tr := NewTransfer(&m, nil)
	require.Equal(t, 0, tr.Read(0x4a, nil))
	require.Equal(t, 0, tr.Write(0x4a, nil))
	require.Equal(t, 0, m.issued)
}

func TestDelayFunc(t *testing.T) {
	var got uint32
	DelayFunc(func(ms uint32) { got = ms }).DelayMs(7)
	require.Equal(t, uint32(7), got)
}

func repeatErr(err error, n int) []error {
	errs := make([]error, n)
	for i := range errs {
		errs[i] = errors.New(err.Error())
	}
	return errs
}
