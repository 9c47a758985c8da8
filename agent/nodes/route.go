package orchestratornode

import contractx "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/contract"

// Route maps an intent onto the response node that handles it. Adding an
// intent means adding a NodeID and a case here.
func Route(intent contractx.Intent) contractx.NodeID {
	switch intent {
	case contractx.IntentGreeting:
		return contractx.NodeGreeting
	case contractx.IntentProductInquiry:
		return contractx.NodeEnquiry
	case contractx.IntentHighIntentLead:
		return contractx.NodeLeadAsk
	case contractx.IntentLeadExtraction:
		return contractx.NodeLeadExtract
	default:
		return Route(contractx.DefaultIntent)
	}
}

// Nodes lists every response node the router can select.
var Nodes = []contractx.NodeID{
	contractx.NodeGreeting,
	contractx.NodeEnquiry,
	contractx.NodeLeadAsk,
	contractx.NodeLeadExtract,
}
