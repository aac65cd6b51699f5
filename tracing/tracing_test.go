package tracing

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/joskern/datarecording"
	"github.com/sarchlab/joskern/sim"
)

var (
	posRun   = &sim.HookPos{Name: "EnvRun"}
	posFault = &sim.HookPos{Name: "PageFault"}
)

var _ = Describe("Recorder", func() {
	var (
		mockCtrl *gomock.Controller
		backend  *MockDataRecorder
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		backend = NewMockDataRecorder(mockCtrl)
		backend.EXPECT().CreateTable(SessionTable, Session{})
		backend.EXPECT().CreateTable(EventTable, Event{})
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should store accepted invocations", func() {
		r := NewRecorder(backend, Only(posFault))

		backend.EXPECT().
			InsertData(EventTable, gomock.Any()).
			Do(func(_ string, entry any) {
				e := entry.(Event)
				Expect(e.Seq).To(Equal(uint64(1)))
				Expect(e.Kind).To(Equal("PageFault"))
				Expect(e.CPU).To(Equal(2))
				Expect(e.Env).To(Equal("00001001"))
				Expect(e.Detail).To(Equal("7"))
				Expect(e.ID).NotTo(BeEmpty())
			})

		r.Func(sim.HookCtx{Pos: posRun, CPU: 0, Env: 0x1000})
		r.Func(sim.HookCtx{Pos: posFault, CPU: 2, Env: 0x1001, Detail: 7})

		Expect(r.NumEvents()).To(Equal(uint64(1)))
	})

	It("should write the session once on terminate", func() {
		r := NewRecorder(backend, All)

		backend.EXPECT().InsertData(EventTable, gomock.Any()).Times(2)
		r.Func(sim.HookCtx{Pos: posRun, CPU: -1})
		r.Func(sim.HookCtx{Pos: posRun, CPU: 0})

		backend.EXPECT().
			InsertData(SessionTable, gomock.Any()).
			Do(func(_ string, entry any) {
				s := entry.(Session)
				Expect(s.Events).To(Equal(uint64(2)))
				Expect(s.Started).NotTo(BeEmpty())
				Expect(s.Ended).NotTo(BeEmpty())
			})
		backend.EXPECT().Flush()

		r.Terminate()
		r.Terminate()
		r.Func(sim.HookCtx{Pos: posRun})
	})
})

var _ = Describe("Counter", func() {
	It("should count per position in first-seen order", func() {
		c := NewCounter(nil)

		c.Func(sim.HookCtx{Pos: posFault})
		c.Func(sim.HookCtx{Pos: posRun})
		c.Func(sim.HookCtx{Pos: posFault})

		Expect(c.Kinds()).To(Equal([]string{"PageFault", "EnvRun"}))
		Expect(c.Count("PageFault")).To(Equal(uint64(2)))
		Expect(c.Count("Exofork")).To(BeZero())
		Expect(c.Snapshot()).To(Equal([]KindCount{
			{Kind: "EnvRun", Count: 1},
			{Kind: "PageFault", Count: 2},
		}))
	})

	It("should honor the filter", func() {
		c := NewCounter(Only(posRun))

		c.Func(sim.HookCtx{Pos: posFault})
		c.Func(sim.HookCtx{Pos: posRun})

		Expect(c.Kinds()).To(Equal([]string{"EnvRun"}))
	})
})

var _ = Describe("Reader", func() {
	It("should read back what a recorder stored", func() {
		w := datarecording.NewSQLiteWriter(
			filepath.Join(GinkgoT().TempDir(), "trace"))
		w.Init()
		DeferCleanup(w.DB.Close)

		r := NewRecorder(w, nil)
		r.Func(sim.HookCtx{Pos: posRun, CPU: 0, Env: 0x1000, Detail: 127})
		r.Func(sim.HookCtx{Pos: posFault, CPU: 1, Env: 0x1001})
		r.Func(sim.HookCtx{Pos: posRun, CPU: 1, Env: 0x1001})
		r.Terminate()

		reader := NewReader(datarecording.NewReaderWithDB(w.DB))

		events, total, err := reader.Events(context.Background(), "EnvRun", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(total).To(Equal(2))
		Expect(events).To(HaveLen(2))
		Expect(events[0].Seq).To(Equal(uint64(1)))
		Expect(events[0].Detail).To(Equal("127"))
		Expect(events[1].Env).To(Equal("00001001"))

		events, total, err = reader.Events(context.Background(), "", 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(total).To(Equal(3))
		Expect(events).To(HaveLen(1))

		sessions, err := reader.Sessions(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(sessions).To(HaveLen(1))
		Expect(sessions[0].Events).To(Equal(uint64(3)))
	})
})
