package wallet

type Network struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// State is an immutable snapshot of the wallet session. Connected and
// Connecting are never both true.
type State struct {
	Address    string
	Connected  bool
	Connecting bool
	Balance    string
	Network    *Network
	Err        string
}

func initialState() State {
	return State{Balance: "0"}
}

type action interface{ isWalletAction() }

type connectStart struct{}

type connectOK struct {
	address string
	balance string
	network Network
}

type connectFail struct{ msg string }

type disconnected struct{}

type balanceUpdate struct{ balance string }

// signFail annotates the state with a signing error without touching the
// connection.
type signFail struct{ msg string }

func (connectStart) isWalletAction()  {}
func (connectOK) isWalletAction()     {}
func (connectFail) isWalletAction()   {}
func (disconnected) isWalletAction()  {}
func (balanceUpdate) isWalletAction() {}
func (signFail) isWalletAction()      {}

// reduce is the pure transition function. Side effects (provider calls) live
// in Session and dispatch follow-up actions on completion.
func reduce(s State, a action) State {
	switch a := a.(type) {
	case connectStart:
		s.Connecting = true
		s.Connected = false
		s.Err = ""
		return s
	case connectOK:
		n := a.network
		return State{
			Address:   a.address,
			Connected: true,
			Balance:   a.balance,
			Network:   &n,
		}
	case connectFail:
		s.Connecting = false
		s.Connected = false
		s.Err = a.msg
		return s
	case disconnected:
		return initialState()
	case balanceUpdate:
		s.Balance = a.balance
		return s
	case signFail:
		s.Err = a.msg
		return s
	default:
		return s
	}
}
