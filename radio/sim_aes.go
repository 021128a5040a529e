package radio

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
)

// Software AES engine for the simulator. Payloads are encrypted with
// AES-128-CTR under the loaded key and authenticated (nonce, header and
// ciphertext) with a truncated HMAC MIC. Both ends of a SimBus interoperate;
// the bit-level format of a real engine is out of scope.

const maxMICSize = 16

// DoAES implements Transceiver. Negative status means the job was rejected
// before execution; AESErrMIC flags an authentication failure on decrypt.
func (t *SimTransceiver) DoAES(job *AESJob) int8 {
	if job == nil || job.MICSize < 0 || job.MICSize > maxMICSize || job.PayloadLen < 0 {
		return -1
	}
	switch job.Mode {
	case AESEncrypt:
		return t.aesEncrypt(job)
	case AESDecrypt:
		return t.aesDecrypt(job)
	default:
		return -1
	}
}

func (t *SimTransceiver) aesEncrypt(job *AESJob) int8 {
	if job.Dst != BufferTx || len(job.Payload) < job.PayloadLen {
		return -1
	}
	t.mu.Lock()
	key := t.aesKey
	t.mu.Unlock()

	ciphertext := make([]byte, job.PayloadLen)
	aesCTR(key, job.Nonce, job.Payload[:job.PayloadLen], ciphertext)
	mic := computeMIC(key, job.Nonce, job.Header, ciphertext, job.MICSize)

	// Header, ciphertext and MIC are staged in the TX buffer with the
	// two-byte FCS placeholder the transceiver fills on air.
	staged := make([]byte, 0, len(job.Header)+job.PayloadLen+job.MICSize+2)
	staged = append(staged, job.Header...)
	staged = append(staged, ciphertext...)
	staged = append(staged, mic...)
	staged = append(staged, 0, 0)

	t.mu.Lock()
	t.txBuf = staged
	t.mu.Unlock()
	return 0
}

func (t *SimTransceiver) aesDecrypt(job *AESJob) int8 {
	if job.Src != BufferRx || len(job.Payload) < job.PayloadLen {
		return -1
	}
	t.mu.Lock()
	key := t.aesKey
	frame := append([]byte(nil), t.rxFrame...)
	t.mu.Unlock()

	headerLen := len(job.Header)
	if headerLen+job.PayloadLen+job.MICSize > len(frame) {
		return -1
	}
	header := frame[:headerLen]
	ciphertext := frame[headerLen : headerLen+job.PayloadLen]
	mic := frame[headerLen+job.PayloadLen : headerLen+job.PayloadLen+job.MICSize]

	want := computeMIC(key, job.Nonce, header, ciphertext, job.MICSize)
	if job.MICSize > 0 && !hmac.Equal(mic, want) {
		return AESErrMIC
	}
	copy(job.Header, header)
	aesCTR(key, job.Nonce, ciphertext, job.Payload[:job.PayloadLen])
	return 0
}

func aesCTR(key Key128, nonce [AESNonceSize]byte, src, dst []byte) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		// Key128 is always a valid AES-128 key.
		panic(err)
	}
	var iv [aes.BlockSize]byte
	copy(iv[:], nonce[:])
	iv[aes.BlockSize-1] = 1
	cipher.NewCTR(block, iv[:]).XORKeyStream(dst, src)
}

func computeMIC(key Key128, nonce [AESNonceSize]byte, header, ciphertext []byte, size int) []byte {
	if size == 0 {
		return nil
	}
	mac := hmac.New(sha256.New, key[:])
	mac.Write(nonce[:])
	mac.Write(header)
	mac.Write(ciphertext)
	return mac.Sum(nil)[:size]
}
