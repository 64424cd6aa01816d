package plcbridge

import (
	"net"
	"sort"
	"sync/atomic"

	"github.com/higebu/netfd"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/runZeroInc/pcsgw/pkg/pcsstore"
	"github.com/runZeroInc/pcsgw/pkg/resetsignal"
)

// ingressRecvBuf is the SO_RCVBUF applied to the ingress socket so a burst
// of PLC command datagrams doesn't overflow the kernel socket buffer
// before RunIngress drains it.
const ingressRecvBuf = 1 << 20

// Bridge owns the PLC-facing UDP ingress and egress sockets and the
// monotonically-incrementing lifecounter carried in every egress image
// (spec.md §9 design note: "model it as an atomic counter on the
// PLC-bridge component, not a free-standing global").
type Bridge struct {
	storeA, storeB *pcsstore.Store
	reset          *resetsignal.Signal
	log            *logrus.Logger

	lifecounter uint64

	ingressConn *net.UDPConn
	egressConn  *net.UDPConn

	droppedDatagrams int64
	appliedBatches   int64
}

// New binds the ingress listen socket and dials the egress socket
// (spec.md §4.9: "a pre-bound, reusable socket").
func New(storeA, storeB *pcsstore.Store, reset *resetsignal.Signal, listenAddr, egressAddr string, log *logrus.Logger) (*Bridge, error) {
	b := &Bridge{storeA: storeA, storeB: storeB, reset: reset, log: log}

	laddr, err := net.ResolveUDPAddr("udp", listenAddr)
	if err != nil {
		return nil, err
	}
	ingressConn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, err
	}
	b.ingressConn = ingressConn
	tuneRecvBuf(ingressConn, log)

	raddr, err := net.ResolveUDPAddr("udp", egressAddr)
	if err != nil {
		ingressConn.Close()
		return nil, err
	}
	egressConn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		ingressConn.Close()
		return nil, err
	}
	b.egressConn = egressConn

	return b, nil
}

// tuneRecvBuf raises the ingress socket's kernel receive buffer so a burst
// of PLC command datagrams queues instead of getting dropped by the kernel
// before RunIngress can drain it. Best-effort: a failure here just leaves
// the OS default in place.
func tuneRecvBuf(conn *net.UDPConn, log *logrus.Logger) {
	fd := netfd.GetFdFromConn(conn)
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, ingressRecvBuf); err != nil {
		log.WithError(err).Warn("plcbridge: SO_RCVBUF tuning failed, leaving default")
	}
}

// Close releases both sockets.
func (b *Bridge) Close() {
	if b.ingressConn != nil {
		b.ingressConn.Close()
	}
	if b.egressConn != nil {
		b.egressConn.Close()
	}
}

// RunIngress blocks reading PLC command datagrams until stop is closed or
// the socket errors out.
func (b *Bridge) RunIngress(stop <-chan struct{}) error {
	buf := make([]byte, 4096)
	for {
		select {
		case <-stop:
			return nil
		default:
		}
		n, _, err := b.ingressConn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-stop:
				return nil
			default:
			}
			return err
		}
		entries, err := decodeIngress(buf[:n])
		if err != nil {
			atomic.AddInt64(&b.droppedDatagrams, 1)
			b.log.WithError(err).Warn("plcbridge: dropping malformed PLC command datagram")
			continue
		}
		b.applyBatch(entries)
	}
}

// applyBatch applies every command entry to both LAN stores (spec.md §9
// open question 1: PLC setpoints, like PMS commands, affect both LANs so
// the PLC image stays unified) and signals the retransmit scheduler.
func (b *Bridge) applyBatch(entries []commandEntry) {
	correlationID := xid.New().String()
	mutated := false
	for _, e := range entries {
		activeEnable := e.CmdProtocol == cmdActiveOnly || e.CmdProtocol == cmdBothActive
		reactiveEnable := e.CmdProtocol == cmdReactiveOnly || e.CmdProtocol == cmdBothActive

		for _, store := range [2]*pcsstore.Store{b.storeA, b.storeB} {
			if store == nil {
				continue
			}
			found := store.WithRecord(e.LogicalID, func(rec *pcsstore.Record) {
				rec.ActivePowerEnable = activeEnable
				rec.ReactivePowerEnable = reactiveEnable
				if activeEnable {
					rec.ActivePowerFeedback = e.ActivePower
				} else {
					rec.ActivePowerFeedback = 0
				}
				if reactiveEnable {
					rec.ReactivePowerFeedback = e.ReactivePower
				} else {
					rec.ReactivePowerFeedback = 0
				}
			})
			if found {
				mutated = true
			}
		}
	}
	if mutated {
		atomic.AddInt64(&b.appliedBatches, 1)
		b.log.WithFields(logrus.Fields{"correlation_id": correlationID, "entries": len(entries)}).Debug("plcbridge: applied PLC command batch")
		b.reset.Set()
	}
}

// SendImage snapshots both LAN stores and sends one egress datagram
// (spec.md §4.9 "Egress").
func (b *Bridge) SendImage() error {
	img := encodeEgress(atomic.AddUint64(&b.lifecounter, 1), b.snapshot(b.storeA), b.snapshot(b.storeB))
	_, err := b.egressConn.Write(img)
	return err
}

func (b *Bridge) snapshot(store *pcsstore.Store) []imageEntry {
	if store == nil {
		return nil
	}
	ids := store.Keys()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]imageEntry, 0, len(ids))
	for _, id := range ids {
		store.View(id, func(rec *pcsstore.Record) {
			out = append(out, imageEntry{
				LogicalID:      id,
				IsValid:        rec.StateValid,
				FeedLineID:     uint8(rec.Nameplate.FeedLineID),
				IsControllable: rec.IsControllable,
				ActivePower:    rec.ActivePowerFeedback,
				ReactivePower:  rec.ReactivePowerFeedback,
				MaxCharge:      rec.MaxCharge,
				MaxDischarge:   rec.MaxDischarge,
				MaxInductive:   rec.MaxInductive,
				MaxCapacitive:  rec.MaxCapacitive,
				SOC:            rec.SOC,
			})
		})
	}
	return out
}

// DroppedDatagrams and AppliedBatches expose ingress counters to
// pkg/metrics.
func (b *Bridge) DroppedDatagrams() int64 { return atomic.LoadInt64(&b.droppedDatagrams) }
func (b *Bridge) AppliedBatches() int64   { return atomic.LoadInt64(&b.appliedBatches) }
