package server

import (
	"net/http"

	"github.com/hailocam/hailocam/pkg/www"
	"github.com/julienschmidt/httprouter"
)

// A minimal built-in viewer, so that pointing a browser at the Pi shows the
// live annotated stream without any client install.
const indexHTML = `<!DOCTYPE html>
<html>
<head>
<title>hailocam</title>
<style>
body { font-family: sans-serif; background: #1b1b1b; color: #ddd; margin: 0; padding: 16px; }
#video { max-width: 100%; border: 1px solid #444; }
#status { font-size: 13px; margin-top: 8px; white-space: pre; color: #9a9; }
</style>
</head>
<body>
<img id="video" src="/video" alt="camera stream">
<div id="status">connecting...</div>
<script>
async function poll() {
	try {
		let r = await fetch('/api/status');
		let s = await r.json();
		document.getElementById('status').textContent =
			s.camera + ' (' + s.source + ')  ' +
			s.device + '/' + s.model + '  ' +
			s.fps.toFixed(1) + ' fps  ' +
			'nn ' + s.nnDetMS.toFixed(1) + ' ms  ' +
			s.eventCount + ' events';
	} catch (e) {
		document.getElementById('status').textContent = 'status unavailable';
	}
}
poll();
setInterval(poll, 2000);
</script>
</body>
</html>
`

func (s *Server) httpIndex(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	www.SendHTML(w, indexHTML)
}
