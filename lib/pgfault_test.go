package lib

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/joskern/kern/env"
	"github.com/sarchlab/joskern/mem/vm"
)

var _ = Describe("pgfault", func() {
	var (
		mockCtrl *gomock.Controller
		m        *MockMachine
		p        *Process
	)

	const addr = vm.UTEXT + 0x123

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		m = NewMockMachine(mockCtrl)
		p = NewProcess()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should reject a read fault on a copy-on-write page", func() {
		m.EXPECT().UVPT(addr).Return(pu | vm.PermCOW).AnyTimes()

		err := pgfault(m, p, env.UTrapframe{
			FaultVA: addr,
			Err:     vm.FaultProtection | vm.FaultUser,
		})

		Expect(err).To(MatchError(ErrProtocolViolation))
	})

	It("should reject a write fault on a page that is not copy-on-write", func() {
		m.EXPECT().UVPT(addr).Return(pu).AnyTimes()

		err := pgfault(m, p, env.UTrapframe{
			FaultVA: addr,
			Err:     vm.FaultProtection | vm.FaultWrite | vm.FaultUser,
		})

		Expect(err).To(MatchError(ErrProtocolViolation))
	})

	It("should copy the page through the scratch slot", func() {
		data := make([]byte, vm.PageSize)
		data[0] = 0xab

		m.EXPECT().UVPT(addr).Return(pu | vm.PermCOW)
		gomock.InOrder(
			m.EXPECT().PageAlloc(env.EnvID(0), vm.PFTEMP, puw),
			m.EXPECT().Load(vm.UTEXT, vm.PageSize).Return(data, nil),
			m.EXPECT().Store(vm.PFTEMP, data),
			m.EXPECT().PageMap(env.EnvID(0), vm.PFTEMP,
				env.EnvID(0), vm.UTEXT, puw),
			m.EXPECT().PageUnmap(env.EnvID(0), vm.PFTEMP),
		)

		err := pgfault(m, p, env.UTrapframe{
			FaultVA: addr,
			Err:     vm.FaultProtection | vm.FaultWrite | vm.FaultUser,
		})

		Expect(err).ToNot(HaveOccurred())
	})

	It("should return allocation failures", func() {
		noMem := errors.New("out of memory")

		m.EXPECT().UVPT(addr).Return(pu | vm.PermCOW)
		m.EXPECT().PageAlloc(env.EnvID(0), vm.PFTEMP, puw).Return(noMem)

		err := pgfault(m, p, env.UTrapframe{
			FaultVA: addr,
			Err:     vm.FaultWrite | vm.FaultUser,
		})

		Expect(err).To(MatchError(noMem))
		Expect(err.Error()).To(ContainSubstring("page_alloc"))
	})

	It("should dispatch the upcall to the process handler", func() {
		called := false
		p.pgfaultHandler = func(
			env.Machine, *Process, env.UTrapframe,
		) error {
			called = true
			return nil
		}

		Expect(pgfaultUpcall(m, p, env.UTrapframe{})).To(Succeed())
		Expect(called).To(BeTrue())
		Expect(pgfaultUpcall(m, NewProcess(), env.UTrapframe{})).
			To(MatchError(errNoHandler))
	})
})
