package browser

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// captureInitScript taps the meeting's media element with a Web Audio
// graph and accumulates 16-bit PCM frames in-page. Injected once.
const captureInitScript = `(() => {
	if (window.__mwCapture) return true;
	const video = document.querySelector('video');
	if (!video || !video.srcObject) return false;
	try {
		const ctx = new (window.AudioContext || window.webkitAudioContext)({sampleRate: 16000});
		const source = ctx.createMediaStreamSource(video.srcObject);
		const proc = ctx.createScriptProcessor(4096, 1, 1);
		const cap = {ctx: ctx, samples: [], rate: ctx.sampleRate};
		proc.onaudioprocess = (e) => {
			const input = e.inputBuffer.getChannelData(0);
			const pcm = new Int16Array(input.length);
			for (let i = 0; i < input.length; i++) {
				const s = Math.max(-1, Math.min(1, input[i]));
				pcm[i] = s < 0 ? s * 0x8000 : s * 0x7fff;
			}
			cap.samples.push(pcm);
		};
		source.connect(proc);
		proc.connect(ctx.destination);
		window.__mwCapture = cap;
		return true;
	} catch (e) {
		return false;
	}
})()`

// captureDrainScript packages the accumulated PCM as a WAV file and
// resets the buffer, returning base64.
const captureDrainScript = `(() => {
	const cap = window.__mwCapture;
	if (!cap || cap.samples.length === 0) return null;
	const chunks = cap.samples;
	cap.samples = [];
	let total = 0;
	for (const c of chunks) total += c.length;
	const dataLen = total * 2;
	const buf = new ArrayBuffer(44 + dataLen);
	const view = new DataView(buf);
	const writeStr = (off, s) => { for (let i = 0; i < s.length; i++) view.setUint8(off + i, s.charCodeAt(i)); };
	writeStr(0, 'RIFF');
	view.setUint32(4, 36 + dataLen, true);
	writeStr(8, 'WAVE');
	writeStr(12, 'fmt ');
	view.setUint32(16, 16, true);
	view.setUint16(20, 1, true);
	view.setUint16(22, 1, true);
	view.setUint32(24, cap.rate, true);
	view.setUint32(28, cap.rate * 2, true);
	view.setUint16(32, 2, true);
	view.setUint16(34, 16, true);
	writeStr(36, 'data');
	view.setUint32(40, dataLen, true);
	let off = 44;
	for (const c of chunks) {
		for (let i = 0; i < c.length; i++) { view.setInt16(off, c[i], true); off += 2; }
	}
	let binary = '';
	const bytes = new Uint8Array(buf);
	for (let i = 0; i < bytes.length; i += 0x8000) {
		binary += String.fromCharCode.apply(null, bytes.subarray(i, i + 0x8000));
	}
	return btoa(binary);
})()`

// Capturer pulls audio chunks from a meeting page. Start is lazy; the
// media element often appears only after admission.
type Capturer struct {
	page    PageSurface
	started bool
}

func NewCapturer(page PageSurface) *Capturer {
	return &Capturer{page: page}
}

// Read drains whatever audio accumulated since the previous call and
// returns it as WAV bytes. Returns an error when no tap could be
// established or nothing was captured; callers fall back to silence.
func (c *Capturer) Read(ctx context.Context, seconds int) ([]byte, error) {
	if !c.started {
		res, err := c.page.EvaluateScript(ctx, captureInitScript)
		if err != nil {
			return nil, fmt.Errorf("inject capture tap: %w", err)
		}
		if string(res) != "true" {
			return nil, fmt.Errorf("no capturable media element on page")
		}
		c.started = true
	}

	res, err := c.page.EvaluateScript(ctx, captureDrainScript)
	if err != nil {
		return nil, fmt.Errorf("drain capture buffer: %w", err)
	}
	var encoded string
	if err := json.Unmarshal(res, &encoded); err != nil || encoded == "" {
		return nil, fmt.Errorf("capture buffer empty")
	}
	wav, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode captured audio: %w", err)
	}
	return wav, nil
}
