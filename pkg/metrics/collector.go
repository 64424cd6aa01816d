// Package metrics exposes a prometheus.Collector over the gateway's
// runtime counters, grounded on the teacher's pkg/exporter.TCPInfoCollector
// shape (a Describe/Collect pair pulling live values out of the running
// components on every scrape). Unlike TCPInfoCollector, the set of
// components here is fixed at construction rather than a dynamically
// added/removed connection set, so no mutex is needed around Collect.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/runZeroInc/pcsgw/pkg/bufpool"
	"github.com/runZeroInc/pcsgw/pkg/lanio"
	"github.com/runZeroInc/pcsgw/pkg/pcsstore"
	"github.com/runZeroInc/pcsgw/pkg/plcbridge"
	"github.com/runZeroInc/pcsgw/pkg/retransmit"
)

// Collector implements prometheus.Collector over one gateway instance's
// components.
type Collector struct {
	bufferPool *bufpool.Pool

	receiverA, receiverB     *lanio.Receiver
	transmitterA, transmitterB *lanio.Transmitter

	storeA, storeB *pcsstore.Store
	scheduler      *retransmit.Scheduler
	bridge         *plcbridge.Bridge

	descBufExhausted     *prometheus.Desc
	descBufOutstanding   *prometheus.Desc
	descBufCapacity      *prometheus.Desc
	descReceiverDropped  *prometheus.Desc
	descReceiverFull     *prometheus.Desc
	descReceiverAccepted *prometheus.Desc
	descTxSent           *prometheus.Desc
	descTxFailed         *prometheus.Desc
	descRecordsValid     *prometheus.Desc
	descSchedulerSent    *prometheus.Desc
	descSchedulerFailed  *prometheus.Desc
	descPLCDropped       *prometheus.Desc
	descPLCApplied       *prometheus.Desc
}

// New builds a Collector. Any component pointer may be nil (e.g. a LAN
// whose transmitter failed to bind at startup, spec.md §7 "Partial
// accept"); Collect simply skips nil components.
func New(bufferPool *bufpool.Pool, receiverA, receiverB *lanio.Receiver, transmitterA, transmitterB *lanio.Transmitter, storeA, storeB *pcsstore.Store, scheduler *retransmit.Scheduler, bridge *plcbridge.Bridge) *Collector {
	return &Collector{
		bufferPool:   bufferPool,
		receiverA:    receiverA,
		receiverB:    receiverB,
		transmitterA: transmitterA,
		transmitterB: transmitterB,
		storeA:       storeA,
		storeB:       storeB,
		scheduler:    scheduler,
		bridge:       bridge,

		descBufExhausted:     prometheus.NewDesc("pcsgw_buffer_pool_exhausted_total", "Cumulative count of failed buffer acquires.", nil, nil),
		descBufOutstanding:   prometheus.NewDesc("pcsgw_buffer_pool_outstanding", "Buffers currently on loan from the pool.", nil, nil),
		descBufCapacity:      prometheus.NewDesc("pcsgw_buffer_pool_capacity", "Fixed buffer pool capacity.", nil, nil),
		descReceiverDropped:  prometheus.NewDesc("pcsgw_receiver_dropped_total", "Frames dropped by a LAN receiver before dispatch.", []string{"lan"}, nil),
		descReceiverFull:     prometheus.NewDesc("pcsgw_receiver_channel_full_total", "Frames dropped because the dispatch channel was full.", []string{"lan"}, nil),
		descReceiverAccepted: prometheus.NewDesc("pcsgw_receiver_accepted_total", "Frames accepted and dispatched by a LAN receiver.", []string{"lan"}, nil),
		descTxSent:           prometheus.NewDesc("pcsgw_transmitter_sent_total", "Frames sent by a LAN transmitter.", []string{"lan"}, nil),
		descTxFailed:         prometheus.NewDesc("pcsgw_transmitter_failed_total", "Frames a LAN transmitter failed to send.", []string{"lan"}, nil),
		descRecordsValid:     prometheus.NewDesc("pcsgw_records_valid", "Current count of state_valid PCS records.", []string{"lan"}, nil),
		descSchedulerSent:    prometheus.NewDesc("pcsgw_scheduler_sent_total", "Frames sent by the retransmit scheduler.", []string{"lan"}, nil),
		descSchedulerFailed:  prometheus.NewDesc("pcsgw_scheduler_failed_total", "Frames the retransmit scheduler failed to send.", []string{"lan"}, nil),
		descPLCDropped:       prometheus.NewDesc("pcsgw_plc_dropped_datagrams_total", "Malformed PLC command datagrams dropped.", nil, nil),
		descPLCApplied:       prometheus.NewDesc("pcsgw_plc_applied_batches_total", "PLC command batches successfully applied.", nil, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.descBufExhausted, c.descBufOutstanding, c.descBufCapacity,
		c.descReceiverDropped, c.descReceiverFull, c.descReceiverAccepted,
		c.descTxSent, c.descTxFailed, c.descRecordsValid,
		c.descSchedulerSent, c.descSchedulerFailed,
		c.descPLCDropped, c.descPLCApplied,
	} {
		ch <- d
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.bufferPool != nil {
		ch <- prometheus.MustNewConstMetric(c.descBufExhausted, prometheus.CounterValue, float64(c.bufferPool.Exhausted()))
		ch <- prometheus.MustNewConstMetric(c.descBufOutstanding, prometheus.GaugeValue, float64(c.bufferPool.Outstanding()))
		ch <- prometheus.MustNewConstMetric(c.descBufCapacity, prometheus.GaugeValue, float64(c.bufferPool.Capacity()))
	}

	c.collectReceiver(ch, "lan-a", c.receiverA)
	c.collectReceiver(ch, "lan-b", c.receiverB)
	c.collectTransmitter(ch, "lan-a", c.transmitterA)
	c.collectTransmitter(ch, "lan-b", c.transmitterB)
	c.collectValidCount(ch, "lan-a", c.storeA)
	c.collectValidCount(ch, "lan-b", c.storeB)

	if c.scheduler != nil {
		st := c.scheduler.Stats()
		ch <- prometheus.MustNewConstMetric(c.descSchedulerSent, prometheus.CounterValue, float64(st.LAN1Sent), "lan-a")
		ch <- prometheus.MustNewConstMetric(c.descSchedulerSent, prometheus.CounterValue, float64(st.LAN2Sent), "lan-b")
		ch <- prometheus.MustNewConstMetric(c.descSchedulerFailed, prometheus.CounterValue, float64(st.LAN1Failed), "lan-a")
		ch <- prometheus.MustNewConstMetric(c.descSchedulerFailed, prometheus.CounterValue, float64(st.LAN2Failed), "lan-b")
	}

	if c.bridge != nil {
		ch <- prometheus.MustNewConstMetric(c.descPLCDropped, prometheus.CounterValue, float64(c.bridge.DroppedDatagrams()))
		ch <- prometheus.MustNewConstMetric(c.descPLCApplied, prometheus.CounterValue, float64(c.bridge.AppliedBatches()))
	}
}

func (c *Collector) collectReceiver(ch chan<- prometheus.Metric, lan string, r *lanio.Receiver) {
	if r == nil {
		return
	}
	st := r.Stats()
	ch <- prometheus.MustNewConstMetric(c.descReceiverDropped, prometheus.CounterValue, float64(st.Dropped), lan)
	ch <- prometheus.MustNewConstMetric(c.descReceiverFull, prometheus.CounterValue, float64(st.ChannelFull), lan)
	ch <- prometheus.MustNewConstMetric(c.descReceiverAccepted, prometheus.CounterValue, float64(st.FramesAccepted), lan)
}

func (c *Collector) collectTransmitter(ch chan<- prometheus.Metric, lan string, tx *lanio.Transmitter) {
	if tx == nil {
		return
	}
	ch <- prometheus.MustNewConstMetric(c.descTxSent, prometheus.CounterValue, float64(tx.Sent()), lan)
	ch <- prometheus.MustNewConstMetric(c.descTxFailed, prometheus.CounterValue, float64(tx.Failed()), lan)
}

func (c *Collector) collectValidCount(ch chan<- prometheus.Metric, lan string, store *pcsstore.Store) {
	if store == nil {
		return
	}
	var valid int
	for _, id := range store.Keys() {
		store.View(id, func(rec *pcsstore.Record) {
			if rec.StateValid {
				valid++
			}
		})
	}
	ch <- prometheus.MustNewConstMetric(c.descRecordsValid, prometheus.GaugeValue, float64(valid), lan)
}
