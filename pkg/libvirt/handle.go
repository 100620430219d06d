package libvirt

import (
	"sync/atomic"

	"github.com/digitalocean/go-libvirt"
	"github.com/jimyag/jvirt/pkg/apierror"
	"github.com/jimyag/jvirt/pkg/virt"
)

type handleKind int

const (
	kindDomain handleKind = iota
	kindPool
	kindVolume
)

func (k handleKind) String() string {
	switch k {
	case kindDomain:
		return "domain"
	case kindPool:
		return "storage-pool"
	case kindVolume:
		return "storage-volume"
	default:
		return "unknown"
	}
}

// handle 包装 go-libvirt 的对象值
// go-libvirt 的对象本身没有引用计数，这里补上计数以满足 virt.Driver 的所有权约定
type handle struct {
	kind handleKind
	dom  libvirt.Domain
	pool libvirt.StoragePool
	vol  libvirt.StorageVol
	refs atomic.Int32
}

func (c *Client) newHandle(kind handleKind) *handle {
	h := &handle{kind: kind}
	h.refs.Store(1)
	c.live.Add(1)
	return h
}

func (c *Client) domainHandle(dom libvirt.Domain) *handle {
	h := c.newHandle(kindDomain)
	h.dom = dom
	return h
}

func (c *Client) poolHandle(pool libvirt.StoragePool) *handle {
	h := c.newHandle(kindPool)
	h.pool = pool
	return h
}

func (c *Client) volumeHandle(vol libvirt.StorageVol) *handle {
	h := c.newHandle(kindVolume)
	h.vol = vol
	return h
}

// Ref 增加一次引用
func (c *Client) Ref(vh virt.Handle) error {
	h, err := asHandle(vh)
	if err != nil {
		return err
	}
	for {
		n := h.refs.Load()
		if n <= 0 {
			return apierror.WrapError(virt.ErrInvalidArgument, "ref a released handle", nil)
		}
		if h.refs.CompareAndSwap(n, n+1) {
			return nil
		}
	}
}

// Free 释放一次引用
func (c *Client) Free(vh virt.Handle) error {
	h, err := asHandle(vh)
	if err != nil {
		return err
	}
	for {
		n := h.refs.Load()
		if n <= 0 {
			return apierror.WrapError(virt.ErrInvalidArgument, "free a released handle", nil)
		}
		if h.refs.CompareAndSwap(n, n-1) {
			if n == 1 {
				c.live.Add(-1)
			}
			return nil
		}
	}
}

func asHandle(vh virt.Handle) (*handle, error) {
	h, ok := vh.(*handle)
	if !ok || h == nil {
		return nil, apierror.WrapError(virt.ErrInvalidArgument, "handle does not belong to the libvirt driver", nil)
	}
	return h, nil
}

func asKind(vh virt.Handle, kind handleKind) (*handle, error) {
	h, err := asHandle(vh)
	if err != nil {
		return nil, err
	}
	if h.kind != kind {
		return nil, apierror.WrapError(virt.ErrInvalidArgument, "expect "+kind.String()+" handle, got "+h.kind.String(), nil)
	}
	if h.refs.Load() <= 0 {
		return nil, apierror.WrapError(virt.ErrInvalidArgument, "use of a released handle", nil)
	}
	return h, nil
}

func domainOf(vh virt.Handle) (libvirt.Domain, error) {
	h, err := asKind(vh, kindDomain)
	if err != nil {
		return libvirt.Domain{}, err
	}
	return h.dom, nil
}

func poolOf(vh virt.Handle) (libvirt.StoragePool, error) {
	h, err := asKind(vh, kindPool)
	if err != nil {
		return libvirt.StoragePool{}, err
	}
	return h.pool, nil
}

func volumeOf(vh virt.Handle) (libvirt.StorageVol, error) {
	h, err := asKind(vh, kindVolume)
	if err != nil {
		return libvirt.StorageVol{}, err
	}
	return h.vol, nil
}
