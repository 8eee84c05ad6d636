package processor

import (
	"github.com/viant/procsched/model/proc"
	"github.com/viant/procsched/service/vm"
)

// ShmOpen maps shared region id and returns its address.
func (p *Proc) ShmOpen(id int) (vm.Addr, error) {
	p.count(proc.SysShmOpen)
	addr, err := p.service.shm.Open(p, id)
	p.trapReturn()
	return addr, err
}

// ShmClose unmaps shared region id.
func (p *Proc) ShmClose(id int) error {
	p.count(proc.SysShmClose)
	err := p.service.shm.Close(p, id)
	p.trapReturn()
	return err
}

// ShmLock takes the sleep lock of region id, sleeping while another
// process holds it.
func (p *Proc) ShmLock(id int) error {
	p.count(proc.SysShmLock)
	err := p.service.shm.Lock(p, id)
	p.trapReturn()
	return err
}

// ShmUnlock releases the sleep lock of region id.
func (p *Proc) ShmUnlock(id int) error {
	p.count(proc.SysShmUnlock)
	err := p.service.shm.Unlock(p, id)
	p.trapReturn()
	return err
}

// ShmRead copies from region id at off into data. The caller must have
// the region open.
func (p *Proc) ShmRead(id, off int, data []byte) (int, error) {
	frame, err := p.shmFrame(id)
	if err != nil {
		return 0, err
	}
	return p.service.frames.Read(frame, off, data)
}

// ShmWrite copies data into region id at off. The caller must have the
// region open.
func (p *Proc) ShmWrite(id, off int, data []byte) (int, error) {
	frame, err := p.shmFrame(id)
	if err != nil {
		return 0, err
	}
	return p.service.frames.Write(frame, off, data)
}

func (p *Proc) shmFrame(id int) (vm.Frame, error) {
	return p.service.shm.Mapped(p, id)
}
