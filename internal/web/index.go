package web

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Focuslog</title>
    <script src="https://unpkg.com/htmx.org@1.9.10"></script>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }

        :root {
            --bg-primary: #f5f5f5;
            --bg-secondary: white;
            --text-primary: #333;
            --text-muted: #7f8c8d;
            --border-color: #eee;
            --accent-color: #3498db;
            --warn-color: #e67e22;
            --heading-color: #2c3e50;
            --shadow: rgba(0,0,0,0.1);
        }

        [data-theme="dark"] {
            --bg-primary: #1a1a1a;
            --bg-secondary: #2d2d2d;
            --text-primary: #e0e0e0;
            --text-muted: #a0a0a0;
            --border-color: #404040;
            --accent-color: #5dade2;
            --heading-color: #5dade2;
            --shadow: rgba(0,0,0,0.3);
        }

        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif;
            background: var(--bg-primary);
            color: var(--text-primary);
            padding: 20px;
        }

        .header { display: flex; justify-content: space-between; margin-bottom: 20px; }
        .header h1 { color: var(--heading-color); }
        .header-btn { background: none; border: 1px solid var(--border-color); color: var(--text-primary); padding: 4px 10px; cursor: pointer; }

        .dashboard { display: grid; grid-template-columns: repeat(auto-fit, minmax(320px, 1fr)); gap: 20px; }
        .report-box { background: var(--bg-secondary); border-radius: 8px; padding: 20px; box-shadow: 0 2px 4px var(--shadow); }
        .report-box h2 { font-size: 1.1em; color: var(--heading-color); margin-bottom: 12px; }

        .current .app-name { font-size: 1.4em; font-weight: 600; }
        .current .title { color: var(--text-muted); margin: 4px 0; overflow: hidden; text-overflow: ellipsis; white-space: nowrap; }
        .current .elapsed { font-family: monospace; font-size: 1.6em; }
        .idle { color: var(--text-muted); font-style: italic; }
        .break { margin-top: 12px; font-family: monospace; }
        .break.due, .warning { color: var(--warn-color); font-weight: 600; }

        .app-item { position: relative; display: flex; justify-content: space-between; padding: 6px 0; border-bottom: 1px solid var(--border-color); }
        .app-item::before { content: ""; position: absolute; left: 0; bottom: 0; height: 2px; width: var(--bar-width); background: var(--accent-color); }
        .category { color: var(--text-muted); font-size: 0.85em; margin-left: 8px; }
        .app-time, .app-percentage { font-family: monospace; margin-left: 8px; }
        .total { margin-top: 10px; font-weight: 600; text-align: right; }
        .loading { color: var(--text-muted); }
    </style>
</head>
<body>
    <div class="header">
        <h1>Focuslog</h1>
        <div>
            <a class="header-btn" href="/api/export">Export CSV</a>
            <button class="header-btn" onclick="toggleTheme()" title="Toggle theme">Theme</button>
        </div>
    </div>
    <div class="dashboard">
        <div class="report-box">
            <h2>Now</h2>
            <div hx-get="/api/state" hx-trigger="load, every 1s" hx-swap="innerHTML">
                <div class="loading">Loading...</div>
            </div>
        </div>
        <div class="report-box">
            <h2>Today</h2>
            <div hx-get="/api/summary?period=day" hx-trigger="load, every 30s" hx-swap="innerHTML">
                <div class="loading">Loading...</div>
            </div>
        </div>
        <div class="report-box">
            <h2>This Week</h2>
            <div hx-get="/api/summary?period=week" hx-trigger="load, every 30s" hx-swap="innerHTML">
                <div class="loading">Loading...</div>
            </div>
        </div>
        <div class="report-box">
            <h2>This Month</h2>
            <div hx-get="/api/summary?period=month" hx-trigger="load, every 30s" hx-swap="innerHTML">
                <div class="loading">Loading...</div>
            </div>
        </div>
    </div>
    <script>
        function toggleTheme() {
            const html = document.documentElement;
            const next = html.getAttribute('data-theme') === 'dark' ? 'light' : 'dark';
            html.setAttribute('data-theme', next);
            localStorage.setItem('theme', next);
        }
        document.documentElement.setAttribute('data-theme', localStorage.getItem('theme') || 'light');
    </script>
</body>
</html>`
