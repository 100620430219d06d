package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	golibvirt "github.com/digitalocean/go-libvirt"
	"github.com/jimyag/jvirt/pkg/libvirt"
	"github.com/jimyag/jvirt/pkg/virt"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	testDom = golibvirt.Domain{
		Name: "vm-1",
		ID:   3,
		UUID: golibvirt.UUID{0x6a, 0x1b, 0x2c, 0x3d, 0x4e, 0x5f, 0x40, 0x71, 0x82, 0x93, 0xa4, 0xb5, 0xc6, 0xd7, 0xe8, 0xf9},
	}
	testDomUUID = "6a1b2c3d-4e5f-4071-8293-a4b5c6d7e8f9"

	testPool = golibvirt.StoragePool{
		Name: "default",
		UUID: golibvirt.UUID{0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x47, 0x77, 0x88, 0x99, 0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff},
	}
	testPoolUUID = "11223344-5566-4777-8899-aabbccddeeff"

	testVol = golibvirt.StorageVol{
		Pool: "default",
		Name: "disk.qcow2",
		Key:  "/var/lib/libvirt/images/disk.qcow2",
	}

	testNow = time.Unix(1700000000, 0)

	errNoDomain = golibvirt.Error{Code: uint32(golibvirt.ErrNoDomain), Message: "Domain not found"}
)

const (
	testDomainXML = `<domain type="kvm">
  <name>vm-1</name>
  <uuid>6a1b2c3d-4e5f-4071-8293-a4b5c6d7e8f9</uuid>
  <os><type arch="x86_64" machine="pc-q35-8.2">hvm</type></os>
</domain>`

	testPoolXML = `<pool type="dir">
  <name>default</name>
  <uuid>11223344-5566-4777-8899-aabbccddeeff</uuid>
  <target><path>/var/lib/libvirt/images</path></target>
</pool>`

	testVolumeXML = `<volume type="file">
  <name>disk.qcow2</name>
  <key>/var/lib/libvirt/images/disk.qcow2</key>
  <target><path>/var/lib/libvirt/images/disk.qcow2</path><format type="qcow2"/></target>
</volume>`
)

type connOptions struct {
	events  bool
	metrics bool
	// qemuRoot 下建 run、log、etc 三个目录，为空时使用默认路径
	qemuRoot string
}

// openConn 用 MockRPC 打开连接，指标采样以暂停状态启动
func openConn(t *testing.T, o connOptions) (*virt.Connection, *libvirt.MockRPC, chan golibvirt.DomainEventLifecycleMsg) {
	t.Helper()

	rpc := (&libvirt.MockRPC{}).ExpectSession()
	events := make(chan golibvirt.DomainEventLifecycleMsg, 4)
	if o.events {
		rpc.On("LifecycleEvents", mock.Anything).Return((<-chan golibvirt.DomainEventLifecycleMsg)(events), nil)
	}

	drv := libvirt.NewMockDriver(rpc,
		libvirt.WithLogger(zerolog.Nop()),
		libvirt.WithIterationTimeout(5*time.Millisecond),
	)
	opts := []virt.Option{
		virt.WithLogger(zerolog.Nop()),
		virt.WithEvents(o.events),
		virt.WithMetrics(o.metrics),
		virt.WithMetricsInterval(0),
		virt.WithClock(fakeclock.NewFakeClock(testNow)),
		virt.WithJoinTimeout(5 * time.Second),
	}
	if o.qemuRoot != "" {
		opts = append(opts, virt.WithQemuPaths(
			filepath.Join(o.qemuRoot, "run"),
			filepath.Join(o.qemuRoot, "log"),
			filepath.Join(o.qemuRoot, "etc"),
		))
	}
	conn, err := virt.Open(context.Background(), drv, opts...)
	require.NoError(t, err)
	t.Cleanup(conn.Dispose)
	return conn, rpc, events
}

// expectDomain 让 testDom 以运行中状态可查询
func expectDomain(rpc *libvirt.MockRPC) {
	rpc.On("DomainLookupByName", testDom.Name).Return(testDom, nil).Maybe()
	rpc.On("DomainLookupByUUID", testDom.UUID).Return(testDom, nil).Maybe()
	rpc.On("DomainLookupByID", testDom.ID).Return(testDom, nil).Maybe()
	rpc.On("DomainIsActive", testDom).Return(int32(1), nil).Maybe()
	rpc.On("DomainGetInfo", testDom).Return(uint8(1), uint64(4096), uint64(2048), uint16(2), uint64(5000), nil).Maybe()
	rpc.On("DomainGetOsType", testDom).Return("hvm", nil).Maybe()
	rpc.On("DomainGetXMLDesc", testDom, mock.Anything).Return(testDomainXML, nil).Maybe()
}

// expectStorage 让 testPool 与 testVol 可查询
func expectStorage(rpc *libvirt.MockRPC) {
	rpc.On("StoragePoolLookupByName", testPool.Name).Return(testPool, nil).Maybe()
	rpc.On("StoragePoolLookupByUUID", testPool.UUID).Return(testPool, nil).Maybe()
	rpc.On("StoragePoolGetInfo", testPool).Return(uint8(2), uint64(100), uint64(40), uint64(60), nil).Maybe()
	rpc.On("StoragePoolIsActive", testPool).Return(int32(1), nil).Maybe()
	rpc.On("StoragePoolGetXMLDesc", testPool, mock.Anything).Return(testPoolXML, nil).Maybe()
	rpc.On("StoragePoolListAllVolumes", testPool, int32(1), uint32(0)).Return([]golibvirt.StorageVol{testVol}, uint32(1), nil).Maybe()
	rpc.On("StorageVolLookupByKey", testVol.Key).Return(testVol, nil).Maybe()
	rpc.On("StorageVolLookupByName", testPool, testVol.Name).Return(testVol, nil).Maybe()
	rpc.On("StorageVolGetInfo", testVol).Return(int8(0), uint64(10), uint64(4), nil).Maybe()
	rpc.On("StorageVolGetPath", testVol).Return(testVol.Key, nil).Maybe()
	rpc.On("StorageVolGetXMLDesc", testVol, uint32(0)).Return(testVolumeXML, nil).Maybe()
	rpc.On("StoragePoolLookupByVolume", testVol).Return(testPool, nil).Maybe()
}
