package http

import (
	nethttp "net/http"
	"time"

	"trustbond-dashboard-ui/internal/session"
)

// officerPageHandler serves the officer queue. The decoded token role
// gates routing only; the backend still authorizes every data call.
func officerPageHandler(sessions *session.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		token, err := requestToken(r, sessions)
		if err != nil {
			nethttp.Redirect(w, r, "/login", nethttp.StatusFound)
			return
		}

		claims, err := session.DecodeClaims(token)
		if err != nil {
			// A token the UI cannot read is a dead session.
			if cookie, cerr := r.Cookie(sessionCookieName); cerr == nil {
				start := time.Now()
				rerr := sessions.Revoke(r.Context(), cookie.Value)
				recordSessionOp("Revoke", time.Since(start).Seconds(), rerr)
			}
			clearSessionCookie(w)
			nethttp.Redirect(w, r, "/login", nethttp.StatusFound)
			return
		}
		if claims.Role != "officer" {
			nethttp.Redirect(w, r, "/", nethttp.StatusFound)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(nethttp.StatusOK)
		_, _ = w.Write([]byte(officerHTML))
	}
}

const officerHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>TrustBond – Officer Queue</title>
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
    }

    header {
      background: linear-gradient(to right, var(--tb-blue) 0, var(--tb-blue-2) 100%);
      border-bottom: 1px solid #0e2e4f;
    }

    .container { margin: 0 auto; padding: 0 15px; max-width: 1080px; }

    .header-inner {
      min-height: 64px;
      display: flex;
      align-items: center;
      justify-content: space-between;
    }
    .navbar-brand { color: #fff; font-size: 21px; font-weight: 300; }
    .navbar-brand strong { font-weight: 600; }
    .navbar-note { color: rgba(255, 255, 255, 0.85); font-size: 13px; }
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

    .panel { background: var(--paper); border: 1px solid var(--line); border-radius: 5px; }
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
    .mono { font-family: Menlo, Consolas, monospace; font-size: 12px; }
    .empty { padding: 18px 16px; color: var(--muted); }

    .pill { display: inline-block; padding: 2px 9px; border-radius: 10px; font-size: 12px; }
    .pill.ok { background: var(--ok-bg); color: var(--ok-text); }
    .pill.bad { background: var(--bad-bg); color: var(--bad-text); }

    td button {
      border: 1px solid var(--line);
      background: #fff;
      border-radius: 4px;
      padding: 4px 11px;
      cursor: pointer;
    }

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
    .modal-status { padding: 22px 16px; text-align: center; color: var(--muted); }
    .modal-status.error { color: var(--bad-text); }
  </style>
</head>
<body>
  <header>
    <div class="container header-inner">
      <div class="navbar-brand"><strong>TrustBond</strong> Officer Queue</div>
      <div class="navbar-note">
        <a href="/">Main dashboard</a>
        <button id="logout-btn">Sign out</button>
      </div>
    </div>
  </header>

  <main>
    <div class="container">
      <div class="panel">
        <h2>Pending Assignments</h2>
        <table>
          <thead>
            <tr><th>Report</th><th>Priority</th><th>Status</th><th></th></tr>
          </thead>
          <tbody id="assignments-body"></tbody>
        </table>
        <div class="empty" id="assignments-empty" style="display:none">No pending assignments.</div>
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
    const q = (s) => document.querySelector(s);

    async function getJSON(url) {
      const r = await fetch(url);
      if (r.status === 401) { window.location = '/login'; throw new Error('unauthenticated'); }
      if (r.status === 403) { window.location = '/'; throw new Error('forbidden'); }
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

    function escapeHTML(v) {
      return String(v == null ? '' : v)
        .replaceAll('&', '&amp;').replaceAll('<', '&lt;').replaceAll('>', '&gt;');
    }

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
          const rep = res.data || {};
          const rows = [
            ['Report ID', '<span class="mono">' + escapeHTML(rep.report_id) + '</span>'],
            ['Reported At', escapeHTML(fmtWhen(rep.reported_at))],
            ['Rule Status', escapeHTML(rep.rule_status || '–')],
            ['Flagged', rep.is_flagged ? 'Yes' : 'No'],
            ['Description', escapeHTML(rep.description || '–')],
          ];
          q('#modal-loading').style.display = 'none';
          q('#modal-content').innerHTML =
            '<dl>' + rows.map(([k, v]) => '<dt>' + k + '</dt><dd>' + v + '</dd>').join('') + '</dl>';
          q('#modal-content').style.display = '';
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

    async function loadAssignments() {
      const res = await getJSON('/api/v1/officer/assignments');
      const assignments = res.data || [];
      const tbody = q('#assignments-body');
      tbody.innerHTML = '';
      q('#assignments-empty').style.display = assignments.length === 0 ? '' : 'none';
      assignments.forEach((a) => {
        const tr = document.createElement('tr');
        tr.innerHTML =
          '<td class="mono">' + escapeHTML(shortID(a.report_id)) + '</td>' +
          '<td>' + escapeHTML(a.priority || '–') + '</td>' +
          '<td><span class="pill ok">' + escapeHTML(a.status) + '</span></td>' +
          '<td></td>';
        const btn = document.createElement('button');
        btn.textContent = 'View report';
        btn.addEventListener('click', () => openReportModal(a.report_id));
        tr.lastElementChild.appendChild(btn);
        tbody.appendChild(tr);
      });
    }

    q('#modal-close').addEventListener('click', closeReportModal);
    q('#report-modal').addEventListener('click', (e) => {
      if (e.target === q('#report-modal')) closeReportModal();
    });
    q('#logout-btn').addEventListener('click', async () => {
      await fetch('/api/v1/session/logout', { method: 'POST' });
      window.location = '/login';
    });

    loadAssignments().catch(() => {
      q('#assignments-empty').textContent = 'Failed to load assignments.';
      q('#assignments-empty').style.display = '';
    });
  </script>
</body>
</html>
`
