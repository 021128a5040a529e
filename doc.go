// Package uwb implements two-way ranging between a pair of impulse-radio
// ultra-wideband transceivers.
//
// An Initiator and a Responder exchange a small number of precisely timed
// frames and derive the distance between them from round-trip and
// reply-time measurements. Two schemes are supported: single-sided ranging
// (one round trip, clock-offset corrected) and double-sided ranging (an
// extra final frame cancels clock offset without measuring it). Exchanges
// can be protected by a scrambled timestamp sequence (STS) with automatic
// counter resynchronization, and application data frames can be secured by
// the transceiver's AES engine (see the aesframe package).
//
// The protocol logic is written against the radio.Transceiver contract and
// never touches the platform layer. A minimal session:
//
//	cfg := uwb.DefaultConfig()
//	cfg.Scheme = uwb.SchemeDoubleSided
//	init, err := uwb.NewInitiator(transceiver, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result := init.RangeOnce()
//	if result.Err == nil && result.DistanceValid {
//	    fmt.Printf("%.2f m\n", result.Distance)
//	}
//
// One exchange is in flight at a time: each role is a single logical
// thread of control and the transceiver is exclusively owned.
package uwb
