package touchpad

import (
	"errors"
	"sync"

	"github.com/antongulenko/touch/ft260"
	log "github.com/sirupsen/logrus"
)

var ErrSequencerStopped = errors.New("I2C sequencer is stopped")

const (
	I2cWrite = iota + 1
	I2cRead
	I2cWriteRead
	I2cGet
)

type I2cRequest struct {
	Type        int
	Addr        byte
	DataWrite   []byte
	DataRead    []byte
	GetRegister byte // Only for I2cGet
	GetSize     int  // Only for I2cGet
	Error       error

	done bool
	wait *sync.Cond
}

func (r *I2cRequest) init() {
	r.wait = &sync.Cond{L: new(sync.Mutex)}
}

func (r *I2cRequest) Wait() {
	r.wait.L.Lock()
	defer r.wait.L.Unlock()
	for !r.done {
		r.wait.Wait()
	}
}

func (r *I2cRequest) notifyDone() {
	r.wait.L.Lock()
	defer r.wait.L.Unlock()
	r.done = true
	r.wait.Broadcast()
}

func (r *I2cRequest) execute(bus ft260.I2cBus) {
	switch r.Type {
	case I2cWrite:
		r.Error = bus.I2cWrite(r.Addr, r.DataWrite...)
	case I2cRead:
		r.Error = bus.I2cRead(r.Addr, r.DataRead)
	case I2cWriteRead:
		r.Error = bus.I2cWriteRead(r.Addr, r.DataWrite, r.DataRead)
	case I2cGet:
		r.DataRead, r.Error = bus.I2cGet(r.Addr, r.GetRegister, r.GetSize)
	default:
		log.Errorln("Ignoring invalid I2C request with type", r.Type)
	}
}

// sequencedI2cBus executes the I2C requests of all goroutines one after another
// in a single goroutine. It implements ft260.I2cBus.
type sequencedI2cBus struct {
	bus      ft260.I2cBus
	i2cQueue chan *I2cRequest

	lock    sync.RWMutex
	stopped bool
	done    chan struct{}
}

var _ ft260.I2cBus = new(sequencedI2cBus)

func newSequencedI2cBus(bus ft260.I2cBus, queueSize int) *sequencedI2cBus {
	return &sequencedI2cBus{
		bus:      bus,
		i2cQueue: make(chan *I2cRequest, queueSize),
		done:     make(chan struct{}),
	}
}

func (s *sequencedI2cBus) start() {
	go s.handleI2cRequests()
}

func (s *sequencedI2cBus) handleI2cRequests() {
	defer close(s.done)
	for req := range s.i2cQueue {
		req.execute(s.bus)
		req.notifyDone()
	}
}

// stop lets the sequencer finish all queued requests and waits for it to exit.
// Requests queued afterwards fail with ErrSequencerStopped.
func (s *sequencedI2cBus) stop() {
	s.lock.Lock()
	if s.stopped {
		s.lock.Unlock()
		return
	}
	s.stopped = true
	close(s.i2cQueue)
	s.lock.Unlock()
	<-s.done
}

func (s *sequencedI2cBus) QueueI2cRequest(req *I2cRequest) {
	req.init()
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.stopped {
		req.Error = ErrSequencerStopped
		req.done = true
		return
	}
	s.i2cQueue <- req
}

func (s *sequencedI2cBus) I2cRequest(req *I2cRequest) {
	s.QueueI2cRequest(req)
	req.Wait()
}

func (s *sequencedI2cBus) I2cWrite(addr byte, data ...byte) error {
	req := &I2cRequest{
		Type:      I2cWrite,
		Addr:      addr,
		DataWrite: data,
	}
	s.I2cRequest(req)
	return req.Error
}

func (s *sequencedI2cBus) I2cRead(addr byte, data []byte) error {
	req := &I2cRequest{
		Type:     I2cRead,
		Addr:     addr,
		DataRead: data,
	}
	s.I2cRequest(req)
	return req.Error
}

func (s *sequencedI2cBus) I2cWriteRead(addr byte, out, in []byte) error {
	req := &I2cRequest{
		Type:      I2cWriteRead,
		Addr:      addr,
		DataRead:  in,
		DataWrite: out,
	}
	s.I2cRequest(req)
	return req.Error
}

func (s *sequencedI2cBus) I2cGet(addr byte, registerAddr byte, size int) ([]byte, error) {
	req := &I2cRequest{
		Type:        I2cGet,
		Addr:        addr,
		GetRegister: registerAddr,
		GetSize:     size,
	}
	s.I2cRequest(req)
	return req.DataRead, req.Error
}
