package virt

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jimyag/jvirt/pkg/apierror"
)

// fakeHandle 带引用计数的句柄，每次查找返回一个新句柄
type fakeHandle struct {
	kind string
	id   uuid.UUID
	key  string
	refs int
}

type fakeDomain struct {
	id     uuid.UUID
	name   string
	runID  int32
	active bool
	vcpus  uint16
	memKB  uint64
	osType string
	xml    string
	cpu    CPUStats
	disks  map[string]BlockStats
	ifaces []InterfaceAddress
}

type fakePool struct {
	id     uuid.UUID
	name   string
	active bool
	xml    string
	info   StoragePoolInfo
}

type fakeVolume struct {
	key  string
	name string
	path string
	pool uuid.UUID
	info StorageVolumeInfo
}

type fakeEvent struct {
	category EventCategory
	id       uuid.UUID
	event    int32
	detail   int32
	done     chan struct{}
}

type fakeRegistration struct {
	category EventCategory
	cb       EventCallback
}

// fakeDriver 内存中的 Driver，用于核心逻辑测试
type fakeDriver struct {
	mu sync.Mutex

	alive        bool
	opened       int
	closed       int
	openErr      error
	keepAliveErr error
	keepAlive    [2]int

	domains map[uuid.UUID]*fakeDomain
	pools   map[uuid.UUID]*fakePool
	volumes map[string]*fakeVolume

	handles map[*fakeHandle]struct{}
	misuse  []string

	// fail 按方法名注入错误
	fail map[string]error

	xmlFetches   map[uuid.UUID]int
	monitorCmds  []string
	controlCalls []DomainOp

	regs         map[int]fakeRegistration
	nextReg      int
	registerErr  map[EventCategory]error
	deregistered []int
	queue        chan fakeEvent
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		alive:       true,
		domains:     make(map[uuid.UUID]*fakeDomain),
		pools:       make(map[uuid.UUID]*fakePool),
		volumes:     make(map[string]*fakeVolume),
		handles:     make(map[*fakeHandle]struct{}),
		fail:        make(map[string]error),
		xmlFetches:  make(map[uuid.UUID]int),
		regs:        make(map[int]fakeRegistration),
		registerErr: make(map[EventCategory]error),
		queue:       make(chan fakeEvent, 64),
	}
}

func domainXML(d *fakeDomain) string {
	return fmt.Sprintf(`<domain type="kvm"><name>%s</name><uuid>%s</uuid>`+
		`<os><type arch="x86_64" machine="pc-q35-8.2">hvm</type></os></domain>`, d.name, d.id)
}

// addDomain 添加一个域，runID 大于 0 表示运行中
func (f *fakeDriver) addDomain(name string, runID int32) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := &fakeDomain{
		id:     uuid.New(),
		name:   name,
		runID:  -1,
		vcpus:  2,
		memKB:  1024 * 1024,
		osType: "hvm",
	}
	if runID > 0 {
		d.runID = runID
		d.active = true
	}
	d.xml = domainXML(d)
	f.domains[d.id] = d
	return d.id
}

func (f *fakeDriver) removeDomain(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.domains, id)
}

func (f *fakeDriver) setDomainActive(id uuid.UUID, active bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.domains[id]; ok {
		d.active = active
	}
}

func (f *fakeDriver) setCPUStats(id uuid.UUID, stats CPUStats) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.domains[id]; ok {
		d.cpu = stats
	}
}

func (f *fakeDriver) setDomainXML(id uuid.UUID, xml string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.domains[id]; ok {
		d.xml = xml
	}
}

// setDiskStats 没有记录的磁盘查询时返回错误
func (f *fakeDriver) setDiskStats(id uuid.UUID, dev string, stats BlockStats) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.domains[id]; ok {
		if d.disks == nil {
			d.disks = make(map[string]BlockStats)
		}
		d.disks[dev] = stats
	}
}

func (f *fakeDriver) setInterfaces(id uuid.UUID, ifaces []InterfaceAddress) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.domains[id]; ok {
		d.ifaces = ifaces
	}
}

func (f *fakeDriver) addPool(name string, active bool) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &fakePool{
		id:     uuid.New(),
		name:   name,
		active: active,
		info:   StoragePoolInfo{State: StoragePoolRunning, Capacity: 100 << 30, Allocation: 10 << 30, Available: 90 << 30},
	}
	if !active {
		p.info.State = StoragePoolInactive
	}
	p.xml = fmt.Sprintf(`<pool type="dir"><name>%s</name><uuid>%s</uuid><target><path>/var/lib/libvirt/images/%s</path></target></pool>`, name, p.id, name)
	f.pools[p.id] = p
	return p.id
}

func (f *fakeDriver) addVolume(pool uuid.UUID, name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.pools[pool]
	key := fmt.Sprintf("/var/lib/libvirt/images/%s/%s", p.name, name)
	f.volumes[key] = &fakeVolume{
		key:  key,
		name: name,
		path: key,
		pool: pool,
		info: StorageVolumeInfo{Type: StorageVolumeFile, Capacity: 20 << 30, Allocation: 2 << 30},
	}
	return key
}

func (f *fakeDriver) failOn(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[method] = err
}

func (f *fakeDriver) setAlive(alive bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alive = alive
}

// liveHandles 仍被持有的句柄数
func (f *fakeDriver) liveHandles() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handles)
}

func (f *fakeDriver) misuses() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.misuse...)
}

func (f *fakeDriver) xmlFetchCount(id uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.xmlFetches[id]
}

func (f *fakeDriver) registrations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.regs)
}

// emit 投递一个事件并等待回调完成
func (f *fakeDriver) emit(t *testing.T, category EventCategory, id uuid.UUID, event, detail int32) {
	t.Helper()
	ev := fakeEvent{category: category, id: id, event: event, detail: detail, done: make(chan struct{})}
	f.queue <- ev
	select {
	case <-ev.done:
	case <-time.After(5 * time.Second):
		t.Fatalf("event %s %d was not delivered", category, event)
	}
}

func notFound(what string) error {
	return apierror.WrapError(ErrNotFound, what+" not found", nil)
}

func (f *fakeDriver) newHandleLocked(kind string, id uuid.UUID, key string) *fakeHandle {
	h := &fakeHandle{kind: kind, id: id, key: key, refs: 1}
	f.handles[h] = struct{}{}
	return h
}

// handleLocked 校验句柄仍然有效
func (f *fakeDriver) handleLocked(h Handle, method string) (*fakeHandle, error) {
	if err := f.fail[method]; err != nil {
		return nil, err
	}
	fh, ok := h.(*fakeHandle)
	if !ok || fh == nil || fh.refs <= 0 {
		f.misuse = append(f.misuse, "use of released handle in "+method)
		return nil, fmt.Errorf("%s: invalid handle", method)
	}
	return fh, nil
}

func (f *fakeDriver) domainLocked(h Handle, method string) (*fakeDomain, error) {
	fh, err := f.handleLocked(h, method)
	if err != nil {
		return nil, err
	}
	d, ok := f.domains[fh.id]
	if !ok {
		return nil, notFound("domain")
	}
	return d, nil
}

func (f *fakeDriver) poolLocked(h Handle, method string) (*fakePool, error) {
	fh, err := f.handleLocked(h, method)
	if err != nil {
		return nil, err
	}
	p, ok := f.pools[fh.id]
	if !ok {
		return nil, notFound("storage pool")
	}
	return p, nil
}

func (f *fakeDriver) volumeLocked(h Handle, method string) (*fakeVolume, error) {
	fh, err := f.handleLocked(h, method)
	if err != nil {
		return nil, err
	}
	v, ok := f.volumes[fh.key]
	if !ok {
		return nil, notFound("storage volume")
	}
	return v, nil
}

func (f *fakeDriver) Open(_ context.Context, _ string, _ Credentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return f.openErr
	}
	f.opened++
	return nil
}

func (f *fakeDriver) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeDriver) IsAlive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alive
}

func (f *fakeDriver) SetKeepAlive(interval, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.keepAliveErr != nil {
		return f.keepAliveErr
	}
	f.keepAlive = [2]int{interval, count}
	return nil
}

func (f *fakeDriver) Ref(h Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	fh, err := f.handleLocked(h, "Ref")
	if err != nil {
		return err
	}
	fh.refs++
	return nil
}

func (f *fakeDriver) Free(h Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	fh, ok := h.(*fakeHandle)
	if !ok || fh == nil || fh.refs <= 0 {
		f.misuse = append(f.misuse, "double free")
		return fmt.Errorf("double free")
	}
	fh.refs--
	if fh.refs == 0 {
		delete(f.handles, fh)
	}
	return nil
}

func (f *fakeDriver) ListActiveDomainIDs() ([]int32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["ListActiveDomainIDs"]; err != nil {
		return nil, err
	}
	var ids []int32
	for _, d := range f.domains {
		if d.active {
			ids = append(ids, d.runID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (f *fakeDriver) ListDefinedDomainNames() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["ListDefinedDomainNames"]; err != nil {
		return nil, err
	}
	var names []string
	for _, d := range f.domains {
		if !d.active {
			names = append(names, d.name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (f *fakeDriver) LookupDomainByID(id int32) (Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["LookupDomainByID"]; err != nil {
		return nil, err
	}
	for _, d := range f.domains {
		if d.active && d.runID == id {
			return f.newHandleLocked("domain", d.id, ""), nil
		}
	}
	return nil, notFound("domain")
}

func (f *fakeDriver) LookupDomainByName(name string) (Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["LookupDomainByName"]; err != nil {
		return nil, err
	}
	for _, d := range f.domains {
		if d.name == name {
			return f.newHandleLocked("domain", d.id, ""), nil
		}
	}
	return nil, notFound("domain")
}

func (f *fakeDriver) LookupDomainByUUID(raw []byte) (Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["LookupDomainByUUID"]; err != nil {
		return nil, err
	}
	id, err := uuid.FromBytes(raw)
	if err != nil {
		return nil, err
	}
	if _, ok := f.domains[id]; !ok {
		return nil, notFound("domain")
	}
	return f.newHandleLocked("domain", id, ""), nil
}

func (f *fakeDriver) DomainUUID(h Handle) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fh, err := f.handleLocked(h, "DomainUUID")
	if err != nil {
		return nil, err
	}
	if fh.id == uuid.Nil {
		return nil, nil
	}
	raw := fh.id
	return raw[:], nil
}

func (f *fakeDriver) DomainName(h Handle) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, err := f.domainLocked(h, "DomainName")
	if err != nil {
		return "", err
	}
	return d.name, nil
}

func (f *fakeDriver) DomainID(h Handle) (int32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, err := f.domainLocked(h, "DomainID")
	if err != nil {
		return 0, err
	}
	if !d.active {
		return -1, nil
	}
	return d.runID, nil
}

func (f *fakeDriver) DomainIsActive(h Handle) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, err := f.domainLocked(h, "DomainIsActive")
	if err != nil {
		return false, err
	}
	return d.active, nil
}

func (f *fakeDriver) DomainXML(h Handle, _ XMLFlags) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, err := f.domainLocked(h, "DomainXML")
	if err != nil {
		return "", err
	}
	f.xmlFetches[d.id]++
	return d.xml, nil
}

func (f *fakeDriver) DomainInfo(h Handle) (DomainInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, err := f.domainLocked(h, "DomainInfo")
	if err != nil {
		return DomainInfo{}, err
	}
	state := DomainStateShutoff
	if d.active {
		state = DomainStateRunning
	}
	return DomainInfo{
		State:     state,
		MaxMemKB:  d.memKB,
		MemoryKB:  d.memKB,
		VCPUs:     d.vcpus,
		CPUTimeNs: d.cpu.CPUTime,
	}, nil
}

func (f *fakeDriver) DomainOSType(h Handle) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, err := f.domainLocked(h, "DomainOSType")
	if err != nil {
		return "", err
	}
	return d.osType, nil
}

func (f *fakeDriver) DomainCPUStats(h Handle) (CPUStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, err := f.domainLocked(h, "DomainCPUStats")
	if err != nil {
		return CPUStats{}, err
	}
	return d.cpu, nil
}

func (f *fakeDriver) DomainControl(h Handle, op DomainOp) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, err := f.domainLocked(h, "DomainControl")
	if err != nil {
		return err
	}
	f.controlCalls = append(f.controlCalls, op)
	switch op {
	case DomainOpCreate, DomainOpResume:
		d.active = true
	case DomainOpShutdown, DomainOpManagedSave:
		d.active = false
	}
	return nil
}

func (f *fakeDriver) DomainMonitorCommand(h Handle, cmd string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.domainLocked(h, "DomainMonitorCommand"); err != nil {
		return "", err
	}
	f.monitorCmds = append(f.monitorCmds, cmd)
	return "", nil
}

func (f *fakeDriver) DomainBlockStats(h Handle, dev string) (BlockStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, err := f.domainLocked(h, "DomainBlockStats")
	if err != nil {
		return BlockStats{}, err
	}
	stats, ok := d.disks[dev]
	if !ok {
		return BlockStats{}, fmt.Errorf("invalid path %s not assigned to domain", dev)
	}
	return stats, nil
}

func (f *fakeDriver) DomainInterfaceAddresses(h Handle) ([]InterfaceAddress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, err := f.domainLocked(h, "DomainInterfaceAddresses")
	if err != nil {
		return nil, err
	}
	if !d.active {
		return nil, fmt.Errorf("domain is not running")
	}
	return append([]InterfaceAddress(nil), d.ifaces...), nil
}

func (f *fakeDriver) poolNamesLocked(active bool) []string {
	var names []string
	for _, p := range f.pools {
		if p.active == active {
			names = append(names, p.name)
		}
	}
	sort.Strings(names)
	return names
}

func (f *fakeDriver) ListActiveStoragePools() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.poolNamesLocked(true), nil
}

func (f *fakeDriver) ListDefinedStoragePools() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.poolNamesLocked(false), nil
}

func (f *fakeDriver) LookupStoragePoolByName(name string) (Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.pools {
		if p.name == name {
			return f.newHandleLocked("pool", p.id, ""), nil
		}
	}
	return nil, notFound("storage pool")
}

func (f *fakeDriver) LookupStoragePoolByUUID(raw []byte) (Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, err := uuid.FromBytes(raw)
	if err != nil {
		return nil, err
	}
	if _, ok := f.pools[id]; !ok {
		return nil, notFound("storage pool")
	}
	return f.newHandleLocked("pool", id, ""), nil
}

func (f *fakeDriver) StoragePoolUUID(h Handle) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fh, err := f.handleLocked(h, "StoragePoolUUID")
	if err != nil {
		return nil, err
	}
	raw := fh.id
	return raw[:], nil
}

func (f *fakeDriver) StoragePoolName(h Handle) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.poolLocked(h, "StoragePoolName")
	if err != nil {
		return "", err
	}
	return p.name, nil
}

func (f *fakeDriver) StoragePoolXML(h Handle) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.poolLocked(h, "StoragePoolXML")
	if err != nil {
		return "", err
	}
	f.xmlFetches[p.id]++
	return p.xml, nil
}

func (f *fakeDriver) StoragePoolInfo(h Handle) (StoragePoolInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.poolLocked(h, "StoragePoolInfo")
	if err != nil {
		return StoragePoolInfo{}, err
	}
	return p.info, nil
}

func (f *fakeDriver) StoragePoolIsActive(h Handle) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.poolLocked(h, "StoragePoolIsActive")
	if err != nil {
		return false, err
	}
	return p.active, nil
}

func (f *fakeDriver) RefreshStoragePool(h Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, err := f.poolLocked(h, "RefreshStoragePool")
	return err
}

func (f *fakeDriver) ListStorageVolumes(pool Handle) ([]Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.poolLocked(pool, "ListStorageVolumes")
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0)
	for key, v := range f.volumes {
		if v.pool == p.id {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	out := make([]Handle, 0, len(keys))
	for _, key := range keys {
		out = append(out, f.newHandleLocked("volume", uuid.Nil, key))
	}
	return out, nil
}

func (f *fakeDriver) LookupStorageVolumeByKey(key string) (Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.volumes[key]; !ok {
		return nil, notFound("storage volume")
	}
	return f.newHandleLocked("volume", uuid.Nil, key), nil
}

func (f *fakeDriver) LookupStorageVolumeByName(pool Handle, name string) (Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.poolLocked(pool, "LookupStorageVolumeByName")
	if err != nil {
		return nil, err
	}
	for key, v := range f.volumes {
		if v.pool == p.id && v.name == name {
			return f.newHandleLocked("volume", uuid.Nil, key), nil
		}
	}
	return nil, notFound("storage volume")
}

func (f *fakeDriver) StoragePoolOfVolume(h Handle) (Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, err := f.volumeLocked(h, "StoragePoolOfVolume")
	if err != nil {
		return nil, err
	}
	if _, ok := f.pools[v.pool]; !ok {
		return nil, notFound("storage pool")
	}
	return f.newHandleLocked("pool", v.pool, ""), nil
}

func (f *fakeDriver) StorageVolumeKey(h Handle) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fh, err := f.handleLocked(h, "StorageVolumeKey")
	if err != nil {
		return "", err
	}
	return fh.key, nil
}

func (f *fakeDriver) StorageVolumeName(h Handle) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, err := f.volumeLocked(h, "StorageVolumeName")
	if err != nil {
		return "", err
	}
	return v.name, nil
}

func (f *fakeDriver) StorageVolumePath(h Handle) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, err := f.volumeLocked(h, "StorageVolumePath")
	if err != nil {
		return "", err
	}
	return v.path, nil
}

func (f *fakeDriver) StorageVolumeXML(h Handle) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, err := f.volumeLocked(h, "StorageVolumeXML")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`<volume type="file"><name>%s</name><key>%s</key><target><path>%s</path></target></volume>`, v.name, v.key, v.path), nil
}

func (f *fakeDriver) StorageVolumeInfo(h Handle) (StorageVolumeInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, err := f.volumeLocked(h, "StorageVolumeInfo")
	if err != nil {
		return StorageVolumeInfo{}, err
	}
	return v.info, nil
}

func (f *fakeDriver) Hostname() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["Hostname"]; err != nil {
		return "", err
	}
	return "node-1", nil
}

func (f *fakeDriver) NodeInfo() (NodeInfo, error) {
	return NodeInfo{Model: "x86_64", MemoryKB: 64 << 20, CPUs: 16, MHz: 2400, Nodes: 1, Sockets: 1, Cores: 8, Threads: 2}, nil
}

func (f *fakeDriver) NodeFreeMemory() (uint64, error) {
	return 32 << 30, nil
}

func (f *fakeDriver) RegisterEvent(category EventCategory, cb EventCallback) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.registerErr[category]; err != nil {
		return 0, err
	}
	f.nextReg++
	f.regs[f.nextReg] = fakeRegistration{category: category, cb: cb}
	return f.nextReg, nil
}

func (f *fakeDriver) DeregisterEvent(id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deregistered = append(f.deregistered, id)
	if _, ok := f.regs[id]; !ok {
		return fmt.Errorf("unknown registration %d", id)
	}
	delete(f.regs, id)
	return nil
}

func (f *fakeDriver) RunOneIteration(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case ev := <-f.queue:
		f.deliver(ev)
		return nil
	}
}

// deliver 以借用句柄回调，回调返回后驱动释放自己的引用
func (f *fakeDriver) deliver(ev fakeEvent) {
	defer close(ev.done)

	f.mu.Lock()
	var cb EventCallback
	for _, reg := range f.regs {
		if reg.category == ev.category {
			cb = reg.cb
		}
	}
	kind := "domain"
	if ev.category != EventDomainLifecycle {
		kind = "pool"
	}
	h := f.newHandleLocked(kind, ev.id, "")
	f.mu.Unlock()

	defer func() {
		_ = f.Free(h)
	}()
	if cb != nil {
		cb(h, ev.event, ev.detail)
	}
}

var _ Driver = (*fakeDriver)(nil)
