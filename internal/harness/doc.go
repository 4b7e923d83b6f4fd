// Package harness runs trade scenarios end to end against an in-process
// cluster and checks what every party's store ends up holding.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: full_chain
//	description: "Order to final payment"
//	config: network.cue            # optional, relative to the scenario
//	steps:
//	  - op: CreatePurchaseOrder
//	    as: Seller
//	    args: { purchase_order_id: PO-1, buyer: Buyer, product_quantity: 100, ... }
//	  - op: ApplyForLetterOfCredit
//	    as: Buyer
//	    args: { ..., loc_value: 400 }
//	    expect: { code: VALIDATION_REJECTED, reason: "value insufficient" }
//	  - op: ShipProducts
//	    as: Seller
//	    unreachable: [AdvisingBank]
//	    args: { ... }
//	    expect: { code: SESSION_FAILED, party: AdvisingBank }
//	assertions:
//	  - type: live
//	    kind: LetterOfCredit
//	    id: LOC-1
//	    expect: { loc_status: ISSUING_BANK_PAID }
//	  - type: retired
//	    kind: PurchaseOrder
//	    id: PO-1
//	    in: [Seller, Buyer]
//	    count: 1
//
// Party-valued arguments (buyer, advising_bank, issuing_bank) name a
// configured party. A step without expect must commit.
//
// # Assertion Types
//
//   - live: exactly one live record of kind with id in each listed party's
//     store, whose fields match expect (subset match; parties compare by name)
//   - retired: count retired records of kind with id (default 1)
//   - absent: no live record of kind with id
//
// # Traces
//
// Every attempt state change is recorded as "<step> <op> <STATE>". Attempt
// ids are sequential, so traces are stable and compared against golden
// files with AssertGolden.
package harness
