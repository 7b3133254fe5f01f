package http

import (
	nethttp "net/http"

	"trustbond-dashboard-ui/internal/session"
)

// dashboardPageHandler serves the admin dashboard shell. Browsers
// without a resolvable session are sent to the login page before any
// backend data is requested.
func dashboardPageHandler(sessions *session.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.URL.Path != "/" {
			nethttp.NotFound(w, r)
			return
		}

		if _, err := requestToken(r, sessions); err != nil {
			nethttp.Redirect(w, r, "/login", nethttp.StatusFound)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(nethttp.StatusOK)
		_, _ = w.Write([]byte(dashboardHTML))
	}
}

func faviconHandler(w nethttp.ResponseWriter, _ *nethttp.Request) {
	w.WriteHeader(nethttp.StatusNoContent)
}

const dashboardHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>TrustBond Triage Dashboard</title>
  <style>
    :root {
      --tb-blue: #123a63;
      --tb-blue-2: #1d5d99;
      --bg: #f6f7f9;
      --paper: #fff;
      --text: #2d3338;
      --muted: #76808a;
      --line: #dbe0e6;
      --line-soft: #eceff2;
      --head: #f0f2f5;
      --ok-bg: #dff0d8;
      --ok-text: #3c763d;
      --bad-bg: #f2dede;
      --bad-text: #a94442;
    }

    * { box-sizing: border-box; }

    body {
      margin: 0;
      background: var(--bg);
      color: var(--text);
      font-family: "Helvetica Neue", Helvetica, Arial, sans-serif;
      font-size: 14px;
      line-height: 1.45;
    }

    a { color: #2a6496; text-decoration: none; }
    a:hover { text-decoration: underline; }

    header {
      background: linear-gradient(to right, var(--tb-blue) 0, var(--tb-blue-2) 100%);
      border-bottom: 1px solid #0e2e4f;
      box-shadow: 0 2px 5px rgba(0, 0, 0, 0.15);
    }

    .container {
      margin: 0 auto;
      padding: 0 15px;
      width: 100%;
      max-width: 1280px;
    }

    .header-inner {
      min-height: 64px;
      display: flex;
      align-items: center;
      justify-content: space-between;
      gap: 16px;
    }

    .navbar-brand { color: #fff; font-size: 21px; font-weight: 300; }
    .navbar-brand strong { font-weight: 600; }
    .navbar-note { color: rgba(255, 255, 255, 0.85); font-size: 13px; text-align: right; }
    .navbar-note a { color: #cfe3f5; margin-left: 10px; }
    .navbar-note button {
      margin-left: 12px;
      border: 1px solid rgba(255, 255, 255, 0.5);
      background: transparent;
      color: #fff;
      border-radius: 4px;
      padding: 5px 12px;
      cursor: pointer;
    }

    main { padding: 20px 0 36px; }

    .banner {
      display: none;
      margin-bottom: 14px;
      padding: 10px 14px;
      border: 1px solid #e4b9b9;
      border-radius: 4px;
      background: var(--bad-bg);
      color: var(--bad-text);
    }
    .banner.show { display: block; }

    .kpi-row {
      display: grid;
      grid-template-columns: repeat(auto-fit, minmax(210px, 1fr));
      gap: 14px;
      margin-bottom: 18px;
    }

    .kpi {
      background: var(--paper);
      border: 1px solid var(--line);
      border-radius: 5px;
      padding: 14px 16px;
    }

    .kpi .label { color: var(--muted); font-size: 12px; text-transform: uppercase; letter-spacing: 0.4px; }
    .kpi .value { font-size: 30px; font-weight: 600; margin-top: 4px; }

    .panel {
      background: var(--paper);
      border: 1px solid var(--line);
      border-radius: 5px;
      margin-bottom: 18px;
    }

    .panel h2 {
      margin: 0;
      padding: 12px 16px;
      font-size: 15px;
      font-weight: 600;
      border-bottom: 1px solid var(--line-soft);
      background: var(--head);
      border-radius: 5px 5px 0 0;
    }

    table { width: 100%; border-collapse: collapse; }
    th, td { padding: 9px 14px; text-align: left; border-bottom: 1px solid var(--line-soft); }
    th { background: var(--head); font-size: 12px; text-transform: uppercase; color: var(--muted); }
    tr.clickable { cursor: pointer; }
    tr.clickable:hover { background: #f4f8fc; }
    .mono { font-family: Menlo, Consolas, monospace; font-size: 12px; }
    .empty { padding: 18px 16px; color: var(--muted); }

    .pill { display: inline-block; padding: 2px 9px; border-radius: 10px; font-size: 12px; }
    .pill.ok { background: var(--ok-bg); color: var(--ok-text); }
    .pill.bad { background: var(--bad-bg); color: var(--bad-text); }

    .pager { padding: 10px 14px; display: flex; align-items: center; gap: 10px; }
    .pager button {
      border: 1px solid var(--line);
      background: #fff;
      border-radius: 4px;
      padding: 5px 12px;
      cursor: pointer;
    }
    .pager button:disabled { color: var(--muted); cursor: default; }
    .pager .range { color: var(--muted); font-size: 13px; }

    .modal-backdrop {
      display: none;
      position: fixed;
      inset: 0;
      background: rgba(0, 0, 0, 0.45);
      z-index: 20;
    }
    .modal-backdrop.open { display: flex; align-items: flex-start; justify-content: center; padding-top: 7vh; }

    .modal {
      width: min(680px, 92vw);
      max-height: 80vh;
      overflow-y: auto;
      background: #fff;
      border-radius: 6px;
      box-shadow: 0 10px 40px rgba(0, 0, 0, 0.3);
    }

    .modal-head {
      display: flex;
      align-items: center;
      justify-content: space-between;
      padding: 12px 16px;
      border-bottom: 1px solid var(--line-soft);
    }
    .modal-head h3 { margin: 0; font-size: 16px; }
    .modal-head button { border: none; background: none; font-size: 22px; cursor: pointer; color: var(--muted); }
    .modal-body { padding: 14px 16px; }
    .modal-body dl { display: grid; grid-template-columns: 160px 1fr; gap: 6px 12px; margin: 0; }
    .modal-body dt { color: var(--muted); }
    .modal-body dd { margin: 0; }
    .modal-body h4 { margin: 16px 0 6px; font-size: 13px; text-transform: uppercase; color: var(--muted); }
    .modal-status { padding: 22px 16px; text-align: center; color: var(--muted); }
    .modal-status.error { color: var(--bad-text); }
  </style>
</head>
<body>
  <header>
    <div class="container header-inner">
      <div class="navbar-brand"><strong>TrustBond</strong> Triage Dashboard</div>
      <div class="navbar-note">
        <span id="who"></span>
        <a href="/officer" id="officer-link" style="display:none">Officer queue</a>
        <button id="logout-btn">Sign out</button>
      </div>
    </div>
  </header>

  <main>
    <div class="container">
      <div class="banner" id="load-error">Failed to load dashboard data. The TrustBond API may be unavailable.</div>

      <div class="kpi-row">
        <div class="kpi"><div class="label">Total reports</div><div class="value" id="kpi-total">–</div></div>
        <div class="kpi"><div class="label">Flagged reports</div><div class="value" id="kpi-flagged">–</div></div>
        <div class="kpi"><div class="label">Pending assignments</div><div class="value" id="kpi-pending">–</div></div>
        <div class="kpi"><div class="label">Active hotspots</div><div class="value" id="kpi-hotspots">–</div></div>
      </div>

      <div class="panel">
        <h2>Recent Reports</h2>
        <table>
          <thead>
            <tr><th>Report</th><th>Reported At</th><th>Rule Status</th><th>Flagged</th></tr>
          </thead>
          <tbody id="reports-body"></tbody>
        </table>
        <div class="empty" id="reports-empty" style="display:none">No reports found.</div>
        <div class="pager">
          <button id="prev-page">Prev</button>
          <button id="next-page">Next</button>
          <span class="range" id="page-range"></span>
        </div>
      </div>

      <div class="panel">
        <h2>Incident Hotspots</h2>
        <table>
          <thead>
            <tr><th>Center</th><th>Incidents</th><th>Risk</th></tr>
          </thead>
          <tbody id="hotspots-body"></tbody>
        </table>
        <div class="empty" id="hotspots-empty" style="display:none">No hotspots reported.</div>
      </div>
    </div>
  </main>

  <div class="modal-backdrop" id="report-modal">
    <div class="modal">
      <div class="modal-head">
        <h3>Report Detail</h3>
        <button id="modal-close" aria-label="Close">&times;</button>
      </div>
      <div class="modal-status" id="modal-loading">Loading report…</div>
      <div class="modal-status error" id="modal-error" style="display:none">Unable to load report.</div>
      <div class="modal-body" id="modal-content" style="display:none"></div>
    </div>
  </div>

  <script>
    const text = (id, v) => document.getElementById(id).textContent = v;
    const q = (s) => document.querySelector(s);

    async function getJSON(url) {
      const r = await fetch(url);
      if (r.status === 401) { window.location = '/login'; throw new Error('unauthenticated'); }
      if (!r.ok) throw new Error(url + ' -> ' + r.status);
      return r.json();
    }

    function shortID(id) {
      const s = String(id || '');
      const cut = s.indexOf('-');
      return cut >= 0 ? s.slice(0, cut) : s;
    }

    function fmtWhen(ts) {
      if (!ts) return '–';
      const d = new Date(ts);
      return isNaN(d.getTime()) ? String(ts) : d.toLocaleString();
    }

    function flaggedPill(flagged) {
      return '<span class="pill ' + (flagged ? 'bad' : 'ok') + '">' + (flagged ? 'Yes' : 'No') + '</span>';
    }

    function escapeHTML(v) {
      return String(v == null ? '' : v)
        .replaceAll('&', '&amp;').replaceAll('<', '&lt;').replaceAll('>', '&gt;');
    }

    let currentPage = 1;
    let perPage = 10;
    let totalReports = 0;

    // The id the open modal belongs to. A detail response is applied
    // only when this still matches the id it was requested for.
    let activeReportID = null;

    function openReportModal(reportID) {
      activeReportID = reportID;
      q('#report-modal').classList.add('open');
      q('#modal-loading').style.display = '';
      q('#modal-error').style.display = 'none';
      q('#modal-content').style.display = 'none';

      getJSON('/api/v1/reports/' + encodeURIComponent(reportID))
        .then((res) => {
          if (activeReportID !== reportID) return;
          renderReportDetail(res.data || {});
        })
        .catch(() => {
          if (activeReportID !== reportID) return;
          q('#modal-loading').style.display = 'none';
          q('#modal-error').style.display = '';
        });
    }

    function closeReportModal() {
      activeReportID = null;
      q('#report-modal').classList.remove('open');
    }

    function renderReportDetail(rep) {
      const rows = [
        ['Report ID', '<span class="mono">' + escapeHTML(rep.report_id) + '</span>'],
        ['Reported At', escapeHTML(fmtWhen(rep.reported_at))],
        ['Rule Status', escapeHTML(rep.rule_status || '–')],
        ['Flagged', flaggedPill(!!rep.is_flagged)],
        ['Description', escapeHTML(rep.description || '–')],
      ];
      if (rep.incident_type) {
        rows.push(['Incident Type', escapeHTML(rep.incident_type.type_name) +
          ' (severity ' + escapeHTML(rep.incident_type.severity_weight) + ')']);
      }

      let html = '<dl>' + rows.map(([k, v]) => '<dt>' + k + '</dt><dd>' + v + '</dd>').join('') + '</dl>';

      const preds = rep.ml_predictions || [];
      html += '<h4>Model Predictions</h4>';
      html += preds.length === 0
        ? '<div class="empty">None recorded.</div>'
        : '<dl>' + preds.map((p) => '<dt>' + escapeHTML(p.model_type) + '</dt><dd>' +
            escapeHTML(p.prediction_label || '–') +
            (p.confidence != null ? ' (' + (Number(p.confidence) * 100).toFixed(1) + '%)' : '') +
          '</dd>').join('') + '</dl>';

      const assigns = rep.assignments || [];
      html += '<h4>Assignments</h4>';
      html += assigns.length === 0
        ? '<div class="empty">Unassigned.</div>'
        : '<dl>' + assigns.map((a) => '<dt>Officer ' + escapeHTML(a.police_user_id) + '</dt><dd>' +
            escapeHTML(a.status) + ' / ' + escapeHTML(a.priority) + '</dd>').join('') + '</dl>';

      q('#modal-loading').style.display = 'none';
      q('#modal-content').innerHTML = html;
      q('#modal-content').style.display = '';
    }

    function renderReports(reports) {
      const tbody = q('#reports-body');
      tbody.innerHTML = '';
      q('#reports-empty').style.display = reports.length === 0 ? '' : 'none';
      reports.forEach((rep) => {
        const tr = document.createElement('tr');
        tr.className = 'clickable';
        tr.innerHTML =
          '<td class="mono">' + escapeHTML(shortID(rep.report_id)) + '</td>' +
          '<td>' + escapeHTML(fmtWhen(rep.reported_at)) + '</td>' +
          '<td>' + escapeHTML(rep.rule_status || '–') + '</td>' +
          '<td>' + flaggedPill(!!rep.is_flagged) + '</td>';
        tr.addEventListener('click', () => openReportModal(rep.report_id));
        tbody.appendChild(tr);
      });
    }

    function renderHotspots(hotspots) {
      const tbody = q('#hotspots-body');
      tbody.innerHTML = '';
      q('#hotspots-empty').style.display = hotspots.length === 0 ? '' : 'none';
      hotspots.forEach((h) => {
        const tr = document.createElement('tr');
        tr.innerHTML =
          '<td class="mono">' + Number(h.center_lat).toFixed(4) + ', ' + Number(h.center_long).toFixed(4) + '</td>' +
          '<td>' + escapeHTML(h.incident_count) + '</td>' +
          '<td>' + escapeHTML(h.risk_level || '–') + '</td>';
        tbody.appendChild(tr);
      });
    }

    function renderPager() {
      const from = totalReports === 0 ? 0 : (currentPage - 1) * perPage + 1;
      const to = Math.min(currentPage * perPage, totalReports);
      text('page-range', from + '–' + to + ' of ' + totalReports);
      q('#prev-page').disabled = currentPage <= 1;
      q('#next-page').disabled = currentPage * perPage >= totalReports;
    }

    async function loadSummary() {
      q('#load-error').classList.remove('show');
      try {
        const res = await getJSON('/api/v1/dashboard/summary?per_page=' + perPage);
        const d = res.data || {};
        text('kpi-total', Number(d.total_reports || 0).toLocaleString());
        text('kpi-flagged', Number(d.flagged_reports || 0).toLocaleString());
        text('kpi-pending', String((d.pending_assignments || []).length));
        text('kpi-hotspots', String((d.hotspots || []).length));
        totalReports = Number(d.total_reports || 0);
        currentPage = 1;
        renderReports(d.reports || []);
        renderHotspots(d.hotspots || []);
        renderPager();
      } catch (err) {
        q('#load-error').classList.add('show');
      }
    }

    async function loadPage(page) {
      try {
        const res = await getJSON('/api/v1/reports?page=' + page + '&per_page=' + perPage);
        currentPage = (res.meta && res.meta.page) || page;
        totalReports = Number((res.meta && res.meta.total) || 0);
        renderReports(res.data || []);
        renderPager();
      } catch (err) {
        q('#load-error').classList.add('show');
      }
    }

    async function loadIdentity() {
      try {
        const res = await getJSON('/api/v1/session');
        const d = res.data || {};
        text('who', d.role ? 'Signed in as ' + d.role : '');
        if (d.role === 'officer') q('#officer-link').style.display = '';
      } catch (err) {
        /* redirected by getJSON on 401 */
      }
    }

    q('#prev-page').addEventListener('click', () => loadPage(currentPage - 1));
    q('#next-page').addEventListener('click', () => loadPage(currentPage + 1));
    q('#modal-close').addEventListener('click', closeReportModal);
    q('#report-modal').addEventListener('click', (e) => {
      if (e.target === q('#report-modal')) closeReportModal();
    });
    q('#logout-btn').addEventListener('click', async () => {
      await fetch('/api/v1/session/logout', { method: 'POST' });
      window.location = '/login';
    });

    loadIdentity();
    loadSummary();
  </script>
</body>
</html>
`
