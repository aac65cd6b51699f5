package trap

import (
	"bytes"
	"encoding/binary"

	"github.com/sarchlab/joskern/kern/env"
	"github.com/sarchlab/joskern/mem/vm"
)

// UTrapframeSize is the number of bytes a UTrapframe takes on the user
// exception stack.
const UTrapframeSize = 52

// scratchWord is left empty between nested exception frames for the upcall
// to push its return address into.
const scratchWord = 4

type utrapframeLayout struct {
	FaultVA uint32
	Err     uint32
	Regs    env.PushRegs
	EIP     uint32
	EFlags  uint32
	ESP     uint32
}

// EncodeUTrapframe lays out a UTrapframe the way it appears in user memory.
func EncodeUTrapframe(utf env.UTrapframe) []byte {
	buf := new(bytes.Buffer)
	buf.Grow(UTrapframeSize)

	err := binary.Write(buf, binary.LittleEndian, utrapframeLayout{
		FaultVA: uint32(utf.FaultVA),
		Err:     uint32(utf.Err),
		Regs:    utf.Regs,
		EIP:     utf.EIP,
		EFlags:  utf.EFlags,
		ESP:     utf.ESP,
	})
	if err != nil {
		panic(err)
	}

	return buf.Bytes()
}

// DecodeUTrapframe reads a UTrapframe from its in-memory layout.
func DecodeUTrapframe(data []byte) (env.UTrapframe, error) {
	var l utrapframeLayout

	err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &l)
	if err != nil {
		return env.UTrapframe{}, err
	}

	return env.UTrapframe{
		FaultVA: vm.VA(l.FaultVA),
		Err:     vm.FaultCode(l.Err),
		Regs:    l.Regs,
		EIP:     l.EIP,
		EFlags:  l.EFlags,
		ESP:     l.ESP,
	}, nil
}

// onExceptionStack returns true if esp already points into the user
// exception stack, i.e. the fault happened inside the upcall.
func onExceptionStack(esp uint32) bool {
	return esp >= uint32(vm.UXSTACKTOP-vm.PageSize) &&
		esp < uint32(vm.UXSTACKTOP)
}

// framePosition returns where the next UTrapframe goes given the trap-time
// stack pointer.
func framePosition(esp uint32) (vm.VA, bool) {
	top := uint32(vm.UXSTACKTOP)
	if onExceptionStack(esp) {
		top = esp - scratchWord
	}

	pos := top - UTrapframeSize
	if pos < uint32(vm.UXSTACKTOP-vm.PageSize) {
		return 0, false
	}

	return vm.VA(pos), true
}
