package http

import nethttp "net/http"

func loginPageHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(nethttp.StatusOK)
	_, _ = w.Write([]byte(loginHTML))
}

const loginHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>TrustBond – Sign In</title>
  <style>
    :root {
      --tb-blue: #123a63;
      --tb-blue-2: #1d5d99;
      --bg: #f6f7f9;
      --paper: #fff;
      --text: #2d3338;
      --muted: #76808a;
      --line: #dbe0e6;
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
      padding: 16px 0;
      text-align: center;
      color: #fff;
      font-size: 21px;
      font-weight: 300;
    }
    header strong { font-weight: 600; }

    main {
      display: flex;
      flex-wrap: wrap;
      gap: 22px;
      justify-content: center;
      padding: 40px 16px;
    }

    .card {
      background: var(--paper);
      border: 1px solid var(--line);
      border-radius: 6px;
      padding: 22px 24px;
      width: min(380px, 94vw);
    }

    .card h2 { margin: 0 0 6px; font-size: 17px; }
    .card p.hint { margin: 0 0 16px; color: var(--muted); font-size: 13px; }

    label { display: block; margin: 10px 0 4px; font-size: 13px; color: var(--muted); }
    input {
      width: 100%;
      padding: 8px 10px;
      border: 1px solid var(--line);
      border-radius: 4px;
      font-size: 14px;
    }

    button {
      margin-top: 16px;
      width: 100%;
      padding: 9px 0;
      border: none;
      border-radius: 4px;
      background: var(--tb-blue-2);
      color: #fff;
      font-size: 14px;
      cursor: pointer;
    }
    button:disabled { opacity: 0.6; cursor: default; }

    .error { margin-top: 12px; color: var(--bad-text); font-size: 13px; min-height: 16px; }
    .checking { color: var(--muted); text-align: center; width: 100%; }
    #bootstrap-card { display: none; }
  </style>
</head>
<body>
  <header><strong>TrustBond</strong> Triage Dashboard</header>

  <main>
    <div class="checking" id="state-note">Checking system state…</div>

    <div class="card" id="login-card" style="display:none">
      <h2>Sign In</h2>
      <p class="hint">Police user credentials are verified by the TrustBond API.</p>
      <form id="login-form">
        <label for="login-email">Email</label>
        <input id="login-email" type="email" autocomplete="username" required />
        <label for="login-password">Password</label>
        <input id="login-password" type="password" autocomplete="current-password" required />
        <button type="submit" id="login-btn">Sign in</button>
      </form>
      <div class="error" id="login-error"></div>
    </div>

    <div class="card" id="bootstrap-card">
      <h2>First-Run Setup</h2>
      <p class="hint">No accounts exist yet. Create the initial administrator.</p>
      <form id="bootstrap-form">
        <label for="bs-first">First name</label>
        <input id="bs-first" required />
        <label for="bs-last">Last name</label>
        <input id="bs-last" required />
        <label for="bs-email">Email</label>
        <input id="bs-email" type="email" required />
        <label for="bs-password">Password</label>
        <input id="bs-password" type="password" required />
        <label for="bs-badge">Badge number (optional)</label>
        <input id="bs-badge" />
        <button type="submit" id="bootstrap-btn">Create administrator</button>
      </form>
      <div class="error" id="bootstrap-error"></div>
    </div>
  </main>

  <script>
    const q = (s) => document.querySelector(s);

    async function postJSON(url, body) {
      const r = await fetch(url, {
        method: 'POST',
        headers: { 'Content-Type': 'application/json' },
        body: JSON.stringify(body),
      });
      let payload = {};
      try { payload = await r.json(); } catch (err) { /* non-JSON error body */ }
      if (!r.ok) throw new Error(payload.error || ('request failed (' + r.status + ')'));
      return payload;
    }

    function landingFor(role) {
      return role === 'officer' ? '/officer' : '/';
    }

    // The bootstrap panel only appears once the exists check answers
    // false. Until then the page shows a neutral checking state, and on
    // any failure it stays hidden.
    async function checkBootstrapState() {
      try {
        const r = await fetch('/api/v1/bootstrap/exists');
        if (!r.ok) throw new Error('exists check failed');
        const payload = await r.json();
        if (payload.data && payload.data.exists === false) {
          q('#bootstrap-card').style.display = 'block';
        }
      } catch (err) {
        /* fail safe: offer login only */
      }
      q('#state-note').style.display = 'none';
      q('#login-card').style.display = 'block';
    }

    q('#login-form').addEventListener('submit', async (e) => {
      e.preventDefault();
      q('#login-error').textContent = '';
      q('#login-btn').disabled = true;
      try {
        const res = await postJSON('/api/v1/session/login', {
          email: q('#login-email').value.trim(),
          password: q('#login-password').value,
        });
        window.location = landingFor(res.data && res.data.role);
      } catch (err) {
        q('#login-error').textContent = err.message;
      } finally {
        q('#login-btn').disabled = false;
      }
    });

    q('#bootstrap-form').addEventListener('submit', async (e) => {
      e.preventDefault();
      q('#bootstrap-error').textContent = '';
      q('#bootstrap-btn').disabled = true;
      try {
        const badge = q('#bs-badge').value.trim();
        const res = await postJSON('/api/v1/bootstrap', {
          first_name: q('#bs-first').value.trim(),
          last_name: q('#bs-last').value.trim(),
          email: q('#bs-email').value.trim(),
          password: q('#bs-password').value,
          badge_number: badge === '' ? null : badge,
        });
        window.location = landingFor(res.data && res.data.role);
      } catch (err) {
        q('#bootstrap-error').textContent = err.message;
      } finally {
        q('#bootstrap-btn').disabled = false;
      }
    });

    checkBootstrapState();
  </script>
</body>
</html>
`
