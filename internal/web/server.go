package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/kronevakt/kronevakt/internal/domain"
)

const snapshotPollInterval = 2 * time.Second

type balanceSnapshotReader interface {
	SnapshotsAfter(index uint64) ([]domain.BalanceSnapshotRecord, error)
}

// snapshotView is the SSE payload. The card number is masked; full numbers
// never leave the process.
type snapshotView struct {
	Card            string              `json:"card"`
	Balance         string              `json:"balance"`
	ObservedAt      time.Time           `json:"observed_at"`
	LastTransaction *domain.Transaction `json:"last_transaction,omitempty"`
}

// Server exposes HTTP endpoints serving the HTML UI and an SSE stream of
// balance snapshots.
type Server struct {
	Addr  string
	Store balanceSnapshotReader
}

// NewServer creates a new web server instance.
func NewServer(addr string, store balanceSnapshotReader) *Server {
	return &Server{Addr: addr, Store: store}
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/balance/stream", s.handleBalanceStream)

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

func (s *Server) handleBalanceStream(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "snapshot store not available")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// send a comment heartbeat every 30s so proxies keep connection
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	pollTicker := time.NewTicker(snapshotPollInterval)
	defer pollTicker.Stop()

	lastIndex := uint64(0)
	sendSnapshots := func() error {
		records, err := s.Store.SnapshotsAfter(lastIndex)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		for _, record := range records {
			view := snapshotView{
				Card:            record.Snapshot.Card.Masked(),
				Balance:         record.Snapshot.Balance.String(),
				ObservedAt:      record.Snapshot.ObservedAt,
				LastTransaction: record.Snapshot.LastTransaction,
			}
			payload, err := json.Marshal(view)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "event: balance\n")
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
			lastIndex = record.Index
		}
		return nil
	}

	if err := sendSnapshots(); err != nil {
		http.Error(w, "failed to load snapshots", http.StatusInternalServerError)
		log.Printf("balance stream initial load: %v", err)
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-pollTicker.C:
			if err := sendSnapshots(); err != nil {
				log.Printf("balance stream poll err: %v", err)
			}
		}
	}
}

// Per-card dashboard with a balance history chart.
const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>Kronevakt</title>
  <script src="https://cdn.jsdelivr.net/npm/chart.js"></script>
  <link rel="preconnect" href="https://fonts.googleapis.com">
  <link rel="preconnect" href="https://fonts.gstatic.com" crossorigin>
  <link href="https://fonts.googleapis.com/css2?family=Press+Start+2P&family=Space+Mono:wght@400;700&display=swap" rel="stylesheet">
  <style>
    :root {
      --bg:#ffffff;
      --ink:#111111;
      --ink-mid:#4d4d4d;
      --ink-soft:#9c9c9c;
      --panel:#f6f6f6;
    }
    * { box-sizing:border-box; }
    body {
      margin:0;
      min-height:100vh;
      display:flex;
      align-items:center;
      justify-content:center;
      padding:2rem;
      background:var(--bg);
      color:var(--ink);
      font-family:'Space Mono','JetBrains Mono',monospace;
    }
    #app {
      width:min(1100px, 96vw);
      background:var(--panel);
      border:3px solid var(--ink);
      padding:2rem;
      position:relative;
      box-shadow:12px 12px 0 rgba(0,0,0,.15);
      display:flex;
      flex-direction:column;
      gap:2rem;
    }
    header { display:flex; justify-content:space-between; align-items:flex-start; gap:1rem; }
    .eyebrow {
      font-family:'Press Start 2P','Space Mono',monospace;
      font-size:.55rem;
      text-transform:uppercase;
      letter-spacing:.2em;
      margin:0;
    }
    .status {
      font-size:.65rem;
      text-transform:uppercase;
      letter-spacing:.1em;
      border:2px solid var(--ink);
      padding:.4rem .9rem;
      background:#ffffff;
      box-shadow:4px 4px 0 rgba(0,0,0,.15);
    }
    .balance-chart {
      width:100%;
      border:2px solid var(--ink);
      background:#fff;
    }
    .card-grid {
      display:grid;
      grid-template-columns:repeat(auto-fit, minmax(300px, 1fr));
      gap:1.5rem;
    }
    .card-tile {
      border:3px solid var(--ink);
      padding:1.5rem;
      background:#fff;
      box-shadow:8px 8px 0 rgba(0,0,0,.15);
      display:flex;
      flex-direction:column;
      gap:1rem;
    }
    .card-number {
      font-family:'Press Start 2P','Space Mono',monospace;
      font-size:.7rem;
      letter-spacing:.08em;
      margin:0;
    }
    .balance-value {
      font-size:1.8rem;
      font-weight:700;
      letter-spacing:.08em;
    }
    .tx {
      font-size:.7rem;
      color:var(--ink-mid);
      border-top:1px dashed var(--ink-soft);
      padding-top:.8rem;
    }
    .pill {
      font-size:.55rem;
      letter-spacing:.12em;
      text-transform:uppercase;
      padding:.35rem .7rem;
      border:2px solid var(--ink);
      background:#fefefe;
      align-self:flex-start;
    }
    .empty-state {
      border:2px dashed var(--ink-soft);
      padding:2rem;
      text-align:center;
      font-size:.8rem;
      letter-spacing:.12em;
      text-transform:uppercase;
      color:var(--ink-mid);
    }
    @media (max-width:640px) {
      body { padding:1rem; }
      #app { padding:1.2rem; }
      header { flex-direction:column; align-items:flex-start; }
      .card-grid { grid-template-columns:1fr; }
    }
  </style>
</head>
<body>
  <div id="app">
    <header>
      <p class="eyebrow">kronevakt dashboard</p>
      <div id="sse-status" class="status">Connecting…</div>
    </header>
    <canvas id="balanceChart" class="balance-chart" height="280"></canvas>
    <section id="cards" class="card-grid">
      <div id="emptyState" class="empty-state">Waiting for balance snapshots…</div>
    </section>
  </div>
<script>
const statusEl = document.getElementById('sse-status');
const cardContainer = document.getElementById('cards');
const emptyState = document.getElementById('emptyState');
const cardViews = new Map();
const datasetByCard = new Map();
const colorPalette = [
  { line:'#111111', fill:'rgba(17,17,17,0.12)' },
  { line:'#d7263d', fill:'rgba(215,38,61,0.15)' },
  { line:'#1b9aaa', fill:'rgba(27,154,170,0.15)' },
  { line:'#ff7f11', fill:'rgba(255,127,17,0.18)' },
  { line:'#3c91e6', fill:'rgba(60,145,230,0.15)' }
];
let colorIndex = 0;

Chart.defaults.font.family = "'Space Mono', 'JetBrains Mono', monospace";
Chart.defaults.font.size = 11;
Chart.defaults.color = '#111111';

const chart = new Chart(document.getElementById('balanceChart').getContext('2d'), {
  type: 'line',
  data: { labels: [], datasets: [] },
  options: {
    animation: false,
    responsive: true,
    interaction: { intersect: false, mode: 'index' },
    scales: {
      x:{ ticks:{ maxRotation:0, autoSkip:true }, grid:{ color:'rgba(0,0,0,0.08)' } },
      y:{ grid:{ color:'rgba(0,0,0,0.08)' } }
    },
    plugins:{
      legend:{ display:true, labels:{ usePointStyle:true, boxWidth:12 } }
    }
  }
});

const formatTs = (ts) => {
  if(!ts){ return 'Waiting…'; }
  const date = new Date(ts);
  if(Number.isNaN(date.getTime())){ return 'Waiting…'; }
  return date.toLocaleTimeString([], { hour12:false });
};

function ensureDataset(card){
  if(datasetByCard.has(card)){
    return datasetByCard.get(card);
  }
  const palette = colorPalette[colorIndex % colorPalette.length];
  colorIndex += 1;
  const dataset = {
    label: card,
    data: new Array(chart.data.labels.length).fill(null),
    borderColor: palette.line,
    backgroundColor: palette.fill,
    borderWidth: 2,
    pointRadius: 0,
    tension: 0.15,
    fill: false
  };
  chart.data.datasets.push(dataset);
  datasetByCard.set(card, dataset);
  return dataset;
}

function ensureCardView(card){
  if(cardViews.has(card)){
    return cardViews.get(card);
  }
  if(emptyState){
    emptyState.remove();
  }

  const tile = document.createElement('article');
  tile.className = 'card-tile';

  const title = document.createElement('h2');
  title.className = 'card-number';
  title.textContent = card;

  const balance = document.createElement('div');
  balance.className = 'balance-value';
  balance.textContent = '—';

  const updated = document.createElement('span');
  updated.className = 'pill';
  updated.textContent = 'Waiting…';

  const tx = document.createElement('div');
  tx.className = 'tx';
  tx.textContent = '';

  tile.append(title, balance, updated, tx);
  cardContainer.appendChild(tile);

  const view = { balanceEl: balance, updatedEl: updated, txEl: tx };
  cardViews.set(card, view);
  return view;
}

function handlePayload(payload){
  const card = payload.card || '—';
  const view = ensureCardView(card);

  view.balanceEl.textContent = payload.balance + ' kr';
  view.updatedEl.textContent = formatTs(payload.observed_at);

  if(payload.last_transaction){
    const tx = payload.last_transaction;
    view.txEl.textContent = [tx.date, tx.description, tx.amount].filter(Boolean).join(' · ');
  }

  chart.data.labels.push(formatTs(payload.observed_at));
  chart.data.datasets.forEach((dataset) => {
    const last = dataset.data.length > 0 ? dataset.data[dataset.data.length - 1] : null;
    dataset.data.push(last);
  });
  const dataset = ensureDataset(card);
  const value = parseFloat(payload.balance);
  dataset.data[dataset.data.length - 1] = Number.isFinite(value) ? value : null;
  if(chart.data.labels.length > 5000){
    chart.data.labels.shift();
    chart.data.datasets.forEach((d) => d.data.shift());
  }
  chart.update('none');
}

function connectSSE(){
  const source = new EventSource('/balance/stream');
  statusEl.textContent = 'Status: receiving data';
  source.addEventListener('balance', (event) => {
    try{
      handlePayload(JSON.parse(event.data));
    }catch(err){
      console.error('payload parse', err);
    }
  });
  source.addEventListener('error', () => {
    statusEl.textContent = 'Reconnecting…';
    source.close();
    setTimeout(connectSSE, 2000);
  });
}

connectSSE();
</script>
</body>
</html>`
