// Package monitoring serves the state of a running kernel over HTTP.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/joskern/kern"
	"github.com/sarchlab/joskern/kern/env"
	"github.com/sarchlab/joskern/mem/vm"
	"github.com/sarchlab/joskern/monitoring/web"
	"github.com/sarchlab/joskern/sim"
	"github.com/sarchlab/joskern/tracing"
)

// Kernel is what the monitoring server reports on.
type Kernel interface {
	Envs() []kern.EnvInfo
	CPUStates() []kern.CPUInfo
	Memory() kern.MemInfo
	Mappings(id env.EnvID) ([]vm.Page, error)
}

// Monitor turns a kernel into a server that can be inspected while it
// runs.
type Monitor struct {
	k          Kernel
	counter    *tracing.Counter
	portNumber int

	profileDuration time.Duration

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor.
func NewMonitor(k Kernel) *Monitor {
	return &Monitor{
		k:               k,
		profileDuration: time.Second,
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterCounter sets the event counter reported under /api/events.
func (m *Monitor) RegisterCounter(c *tracing.Counter) {
	m.counter = c
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		id:    sim.GetIDGenerator().Generate(),
		name:  name,
		start: time.Now(),
		total: total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar from the page.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Handler returns the router that serves the API and the page.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/envs", m.listEnvs)
	r.HandleFunc("/api/env/{id}", m.envDetails)
	r.HandleFunc("/api/env/{id}/mappings", m.listMappings)
	r.HandleFunc("/api/cpus", m.listCPUs)
	r.HandleFunc("/api/memory", m.memory)
	r.HandleFunc("/api/events", m.listEvents)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts serving in the background and returns the URL of the
// page.
func (m *Monitor) StartServer() string {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring kernel with %s\n", url)

	handler := m.Handler()

	go func() {
		err := http.Serve(listener, handler)
		dieOnErr(err)
	}()

	return url
}

func (m *Monitor) listEnvs(w http.ResponseWriter, _ *http.Request) {
	envs := m.k.Envs()
	if envs == nil {
		envs = []kern.EnvInfo{}
	}

	writeJSON(w, envs)
}

func (m *Monitor) listCPUs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, m.k.CPUStates())
}

func (m *Monitor) memory(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, m.k.Memory())
}

// mappingRsp is one user page of an environment.
type mappingRsp struct {
	VA   string `json:"va"`
	PA   string `json:"pa"`
	Perm string `json:"perm"`
}

func (m *Monitor) listMappings(w http.ResponseWriter, r *http.Request) {
	id, ok := envIDOr400(w, r)
	if !ok {
		return
	}

	pages, err := m.k.Mappings(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	rsp := make([]mappingRsp, 0, len(pages))
	for _, p := range pages {
		rsp = append(rsp, mappingRsp{
			VA:   fmt.Sprintf("0x%08x", uint32(p.VAddr)),
			PA:   fmt.Sprintf("0x%08x", p.PAddr()),
			Perm: p.Perm.String(),
		})
	}

	writeJSON(w, rsp)
}

func (m *Monitor) envDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := envIDOr400(w, r)
	if !ok {
		return
	}

	for _, info := range m.k.Envs() {
		if info.ID != id {
			continue
		}

		serializer := goseth.NewSerializer()
		serializer.SetRoot(&info)
		serializer.SetMaxDepth(1)
		err := serializer.Serialize(w)
		dieOnErr(err)

		return
	}

	http.Error(w, "Environment not found", http.StatusNotFound)
}

func (m *Monitor) listEvents(w http.ResponseWriter, _ *http.Request) {
	counts := []tracing.KindCount{}
	if m.counter != nil {
		counts = m.counter.Snapshot()
	}

	writeJSON(w, counts)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	bars := make([]progressRsp, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.snapshot())
	}

	writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(m.profileDuration)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func envIDOr400(w http.ResponseWriter, r *http.Request) (env.EnvID, bool) {
	raw := mux.Vars(r)["id"]

	id, err := strconv.ParseUint(raw, 16, 32)
	if err != nil {
		http.Error(w, "Invalid environment ID "+raw, http.StatusBadRequest)
		return 0, false
	}

	return env.EnvID(int32(uint32(id))), true
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
